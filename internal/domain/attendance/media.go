package attendance

import (
	"context"
)

// Upload — файл из запроса до сохранения.
type Upload struct {
	Filename string
	Data     []byte
}

// StoredFile — результат сохранения файла.
type StoredFile struct {
	Path     string
	Filename string
	MimeType string
	Size     int64
}

// MediaStore — внешнее хранилище фотографий.
type MediaStore interface {
	// Save проверяет и сохраняет файл. Недопустимый файл возвращает
	// ошибку Validation и ничего не оставляет на диске.
	Save(ctx context.Context, u Upload) (StoredFile, error)

	// Remove удаляет ранее сохранённый файл; отсутствие файла не ошибка.
	Remove(ctx context.Context, path string) error
}

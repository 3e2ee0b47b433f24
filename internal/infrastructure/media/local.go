// Package media stores attendance photos on the local filesystem.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL STORE
// ══════════════════════════════════════════════════════════════════════════════

// allowed maps accepted MIME types to the stored file extension.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// Config holds LocalStore settings.
type Config struct {
	// Dir is the root directory of stored files.
	Dir string
	// MaxBytes rejects larger files. Zero means 2048 KB.
	MaxBytes int64
	// MaxPixels rejects images whose width times height is larger.
	// Zero means 40 megapixels.
	MaxPixels int
	// ThumbnailWidth, when positive, also writes a resized copy next to each file.
	ThumbnailWidth int
}

// LocalStore implements attendance.MediaStore. Files are validated by
// content (MIME sniffing and a full decode) and written under
// Dir/attendance/YYYY/MM with a random name.
type LocalStore struct {
	config Config
	now    func() time.Time
}

// NewLocalStore creates the root directory when needed.
func NewLocalStore(cfg Config) (*LocalStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("media: directory is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 2048 * 1024
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 40_000_000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: failed to create %s: %w", cfg.Dir, err)
	}
	return &LocalStore{config: cfg, now: time.Now}, nil
}

// Save validates and writes one upload. Invalid files return a validation
// error; filesystem failures return a storage error. Nothing is left on
// disk when Save fails.
func (s *LocalStore) Save(ctx context.Context, u attendance.Upload) (attendance.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return attendance.StoredFile{}, err
	}
	if len(u.Data) == 0 {
		return attendance.StoredFile{}, invalid("The images must be an image.")
	}
	if int64(len(u.Data)) > s.config.MaxBytes {
		return attendance.StoredFile{}, invalid(fmt.Sprintf("The images may not be greater than %d kilobytes.", s.config.MaxBytes/1024))
	}

	mime := mimetype.Detect(u.Data)
	ext, ok := allowed[mime.String()]
	if !ok {
		return attendance.StoredFile{}, invalid("The images must be a file of type: jpeg, png, jpg, gif.")
	}
	// Header only, so a small file cannot expand into a huge bitmap.
	dim, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return attendance.StoredFile{}, invalid("The images must be an image.")
	}
	if int64(dim.Width)*int64(dim.Height) > int64(s.config.MaxPixels) {
		return attendance.StoredFile{}, invalid("The images has invalid image dimensions.")
	}
	img, err := imaging.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return attendance.StoredFile{}, invalid("The images must be an image.")
	}

	now := s.now()
	rel := path.Join("attendance", now.Format("2006"), now.Format("01"), uuid.New().String()+ext)
	full := s.abs(rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return attendance.StoredFile{}, shared.Storage("attendance", "StoreMedia", fmt.Errorf("failed to create directory: %w", err))
	}
	if err := writeAtomic(full, u.Data); err != nil {
		return attendance.StoredFile{}, shared.Storage("attendance", "StoreMedia", err)
	}

	if s.config.ThumbnailWidth > 0 && img.Bounds().Dx() > s.config.ThumbnailWidth {
		thumb := imaging.Resize(img, s.config.ThumbnailWidth, 0, imaging.Lanczos)
		if err := imaging.Save(thumb, thumbPath(full)); err != nil {
			_ = os.Remove(full)
			return attendance.StoredFile{}, shared.Storage("attendance", "StoreMedia", fmt.Errorf("failed to write thumbnail: %w", err))
		}
	}

	return attendance.StoredFile{
		Path:     rel,
		Filename: sanitize(u.Filename),
		MimeType: mime.String(),
		Size:     int64(len(u.Data)),
	}, nil
}

// Remove deletes a stored file and its thumbnail. Missing files are ignored.
func (s *LocalStore) Remove(_ context.Context, rel string) error {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return fmt.Errorf("media: invalid path %q", rel)
	}
	full := s.abs(clean)
	for _, p := range []string{full, thumbPath(full)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("media: failed to remove %s: %w", rel, err)
		}
	}
	return nil
}

// Open returns the absolute path of rel for serving.
func (s *LocalStore) Open(rel string) (string, error) {
	full := s.abs(path.Clean("/" + rel))
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}

func (s *LocalStore) abs(rel string) string {
	return filepath.Join(s.config.Dir, filepath.FromSlash(strings.TrimPrefix(path.Clean("/"+rel), "/")))
}

func thumbPath(full string) string {
	ext := filepath.Ext(full)
	return strings.TrimSuffix(full, ext) + "_thumb" + ext
}

func writeAtomic(full string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == "_" {
		return "image"
	}
	return name
}

func invalid(msg string) error {
	return shared.WrapError("attendance", "StoreMedia", shared.ErrInvalidImage, msg,
		shared.FieldErrors{"images": {msg}})
}

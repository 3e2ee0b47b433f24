package media

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

func encode(t *testing.T, w, h int, f imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), f))
	return buf.Bytes()
}

func newStore(t *testing.T, cfg Config) *LocalStore {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	s, err := NewLocalStore(cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC) }
	return s
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			out = append(out, p)
		}
		return err
	}))
	return out
}

func TestLocalStore_SaveAndRemove(t *testing.T) {
	s := newStore(t, Config{})
	ctx := context.Background()

	f, err := s.Save(ctx, attendance.Upload{Filename: "my selfie (1).png", Data: encode(t, 8, 8, imaging.PNG)})
	require.NoError(t, err)

	assert.Equal(t, "image/png", f.MimeType)
	assert.Equal(t, "my_selfie_1_.png", f.Filename)
	assert.Regexp(t, `^attendance/2024/03/[0-9a-f-]{36}\.png$`, f.Path)
	assert.Positive(t, f.Size)

	full, err := s.Open(f.Path)
	require.NoError(t, err)
	assert.FileExists(t, full)

	require.NoError(t, s.Remove(ctx, f.Path))
	assert.NoFileExists(t, full)

	// Повторное удаление не ошибка.
	assert.NoError(t, s.Remove(ctx, f.Path))
}

func TestLocalStore_AcceptsJPEGAndGIF(t *testing.T) {
	s := newStore(t, Config{})

	for name, tc := range map[string]struct {
		format imaging.Format
		mime   string
	}{
		"jpeg": {imaging.JPEG, "image/jpeg"},
		"gif":  {imaging.GIF, "image/gif"},
	} {
		t.Run(name, func(t *testing.T) {
			f, err := s.Save(context.Background(), attendance.Upload{Filename: "x", Data: encode(t, 4, 4, tc.format)})
			require.NoError(t, err)
			assert.Equal(t, tc.mime, f.MimeType)
		})
	}
}

func TestLocalStore_RejectsInvalidFiles(t *testing.T) {
	png := encode(t, 8, 8, imaging.PNG)

	tests := []struct {
		name string
		data []byte
		max  int64
		px   int
	}{
		{"empty", nil, 0, 0},
		{"text", []byte("definitely not an image"), 0, 0},
		{"bmp", encode(t, 4, 4, imaging.BMP), 0, 0},
		{"truncated png", png[:len(png)/2], 0, 0},
		{"too large", png, 16, 0},
		{"too many pixels", encode(t, 100, 100, imaging.PNG), 0, 9_999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := newStore(t, Config{Dir: dir, MaxBytes: tt.max, MaxPixels: tt.px})

			_, err := s.Save(context.Background(), attendance.Upload{Filename: "bad.png", Data: tt.data})
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			assert.ErrorIs(t, err, shared.ErrInvalidImage)

			fields, ok := shared.AsFieldErrors(err)
			require.True(t, ok)
			assert.Contains(t, fields, "images")
			assert.Empty(t, files(t, dir))
		})
	}
}

func TestLocalStore_Thumbnail(t *testing.T) {
	s := newStore(t, Config{ThumbnailWidth: 16})

	f, err := s.Save(context.Background(), attendance.Upload{Filename: "big.png", Data: encode(t, 64, 32, imaging.PNG)})
	require.NoError(t, err)

	full, err := s.Open(f.Path)
	require.NoError(t, err)
	thumb, err := imaging.Open(thumbPath(full))
	require.NoError(t, err)
	assert.Equal(t, 16, thumb.Bounds().Dx())
	assert.Equal(t, 8, thumb.Bounds().Dy())

	require.NoError(t, s.Remove(context.Background(), f.Path))
	assert.NoFileExists(t, thumbPath(full))
}

func TestLocalStore_RemoveStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	s := newStore(t, Config{Dir: root})
	require.NoError(t, s.Remove(context.Background(), "../keep.txt"))
	assert.FileExists(t, outside)

	assert.Error(t, s.Remove(context.Background(), ""))
}

// Package upload validates and stores user-supplied place photos.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxSize is the per-file limit.
	DefaultMaxSize = 2 << 20
	// DefaultMaxFiles caps multi-file uploads.
	DefaultMaxFiles = 5
	// URLPrefix is where stored files are served from.
	URLPrefix = "/uploads/"
)

var (
	ErrInvalidType  = errors.New("only JPG / PNG images allowed")
	ErrTooLarge     = errors.New("file too large")
	ErrTooManyFiles = errors.New("too many files")
)

var allowed = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Uploader stores images on disk under Dir.
type Uploader struct {
	Dir      string
	MaxSize  int64
	MaxFiles int
	now      func() time.Time
}

// New creates an Uploader with the default limits and makes sure dir exists.
func New(dir string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Uploader{Dir: dir, MaxSize: DefaultMaxSize, MaxFiles: DefaultMaxFiles, now: time.Now}, nil
}

// Validate checks size, extension and sniffed content type. Both the extension and the
// content must be JPEG or PNG.
func (u *Uploader) Validate(fh *multipart.FileHeader) error {
	if fh.Size > u.MaxSize {
		return fmt.Errorf("%w: %s", ErrTooLarge, fh.Filename)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowed[ext]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidType, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if !mt.Is("image/jpeg") && !mt.Is("image/png") {
		return fmt.Errorf("%w: %s is %s", ErrInvalidType, fh.Filename, mt.String())
	}
	return nil
}

// Save validates and writes one file, returning its public path (e.g. /uploads/1718000000000-ab12cd34.png).
func (u *Uploader) Save(fh *multipart.FileHeader) (string, error) {
	if err := u.Validate(fh); err != nil {
		return "", err
	}
	return u.write(fh)
}

// SaveAll validates every file before writing any of them. If a write fails the files
// already written are removed.
func (u *Uploader) SaveAll(fhs []*multipart.FileHeader) ([]string, error) {
	if len(fhs) > u.MaxFiles {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrTooManyFiles, len(fhs), u.MaxFiles)
	}
	for _, fh := range fhs {
		if err := u.Validate(fh); err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(fhs))
	for _, fh := range fhs {
		p, err := u.write(fh)
		if err != nil {
			u.Remove(paths)
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Remove deletes stored files given their public paths. Paths outside URLPrefix are ignored.
func (u *Uploader) Remove(paths []string) {
	for _, p := range paths {
		if !strings.HasPrefix(p, URLPrefix) {
			continue
		}
		name := path.Base(p)
		if err := os.Remove(filepath.Join(u.Dir, name)); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove uploaded file")
		}
	}
}

// Message turns an upload error into text suitable for a form.
func (u *Uploader) Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidType):
		return "Only JPG / PNG images allowed"
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("Each photo must be %s or smaller", humanize.IBytes(uint64(u.MaxSize)))
	case errors.Is(err, ErrTooManyFiles):
		return fmt.Sprintf("You can upload at most %d photos at a time", u.MaxFiles)
	default:
		return "Photo upload failed. Try again."
	}
}

func (u *Uploader) write(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), uuid.New().String()[:8], ext)

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	full := filepath.Join(u.Dir, name)
	dst, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, u.MaxSize+1)); err != nil {
		dst.Close()
		os.Remove(full)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	return URLPrefix + name, nil
}

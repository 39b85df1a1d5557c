package storage

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

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"senyas/internal/models"
)

var (
	ErrMissingFile  = errors.New("no file uploaded")
	ErrFileTooLarge = errors.New("file too large")
)

// UploadURLPrefix is the public path uploads are served under.
const UploadURLPrefix = "/uploads"

const maxNameAttempts = 5

// UploadStore writes uploaded files into a single public directory.
type UploadStore struct {
	dir     string
	maxSize int64
	now     func() time.Time
	suffix  func() string
}

// NewUploadStore creates dir if needed. maxSize <= 0 disables the size limit.
func NewUploadStore(dir string, maxSize int64) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadStore{
		dir:     dir,
		maxSize: maxSize,
		now:     time.Now,
		suffix:  randomSuffix,
	}, nil
}

// Dir is the directory files are written to.
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save persists fh under a fresh name and returns its metadata. tag is the
// caller-supplied type field, stored as-is.
func (s *UploadStore) Save(fh *multipart.FileHeader, tag string) (*models.UploadedFile, error) {
	if fh == nil {
		return nil, ErrMissingFile
	}
	if s.maxSize > 0 && fh.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mimeType := detectMimeType(src, fh)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	createdAt := s.now().UTC()
	dst, storedName, err := s.create(fh.Filename, createdAt)
	if err != nil {
		return nil, err
	}
	destPath := dst.Name()
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &models.UploadedFile{
		OriginalName: fh.Filename,
		StoredName:   storedName,
		SizeBytes:    written,
		MimeType:     mimeType,
		StoragePath:  destPath,
		URL:          path.Join(UploadURLPrefix, storedName),
		Type:         tag,
		CreatedAt:    createdAt,
	}, nil
}

// create opens a new file exclusively so an existing upload is never overwritten.
func (s *UploadStore) create(original string, at time.Time) (*os.File, string, error) {
	ext := extension(original)
	for i := 0; i < maxNameAttempts; i++ {
		name := fmt.Sprintf("%d-%s%s", at.UnixMilli(), s.suffix(), ext)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create upload file: %w", err)
		}
	}
	return nil, "", errors.New("could not allocate upload name")
}

// extension keeps the last dot-suffix of the base name; dotfiles have none.
func extension(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return ext
}

func detectMimeType(r io.Reader, fh *multipart.FileHeader) string {
	mt, err := mimetype.DetectReader(r)
	if err == nil && mt != nil {
		return mt.String()
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

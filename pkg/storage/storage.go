package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultAllowedExtensions is the reading-material allow-list.
var DefaultAllowedExtensions = []string{".pdf"}

// ErrExtensionNotAllowed is returned before anything touches disk.
var ErrExtensionNotAllowed = fmt.Errorf("file extension not allowed")

// Storage is a local-disk file store for reading materials.
type Storage struct {
	basePath    string
	maxFileSize int64
	allowedExts []string
}

// NewStorage creates the store, making sure the base directory exists.
func NewStorage(basePath string, maxFileSize int64, allowedExts []string) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if len(allowedExts) == 0 {
		allowedExts = DefaultAllowedExtensions
	}

	return &Storage{
		basePath:    basePath,
		maxFileSize: maxFileSize,
		allowedExts: allowedExts,
	}, nil
}

// ValidateExtension checks a filename against the allow-list.
func (s *Storage) ValidateExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.allowedExts {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
}

// SaveFile stores an uploaded file under a generated name and returns that
// name. Validation happens before any byte is written, so a rejected upload
// leaves no trace on disk.
func (s *Storage) SaveFile(file *multipart.FileHeader) (string, error) {
	if err := s.ValidateExtension(file.Filename); err != nil {
		return "", err
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return "", fmt.Errorf("file size exceeds maximum allowed size")
	}

	fileName := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	filePath := filepath.Join(s.basePath, fileName)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	return fileName, nil
}

// DeleteFile removes a stored file. A missing file is not an error: the
// delete path must stay retryable after a crash between file and record
// removal.
func (s *Storage) DeleteFile(fileName string) error {
	if err := os.Remove(s.Path(fileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Path returns the absolute path of a stored file for serving.
func (s *Storage) Path(fileName string) string {
	return filepath.Join(s.basePath, filepath.Base(fileName))
}

// Exists reports whether the stored file is present on disk.
func (s *Storage) Exists(fileName string) bool {
	_, err := os.Stat(s.Path(fileName))
	return err == nil
}

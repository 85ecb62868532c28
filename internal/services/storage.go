package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
)

// StorageService keeps the original uploaded files. Save returns the URL
// the file can be fetched from.
type StorageService interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

func NewStorageService(ctx context.Context, cfg config.StorageConfig) (StorageService, error) {
	switch cfg.Driver {
	case "local":
		s := NewLocalStorageService(cfg.UploadPath, cfg.PublicBaseURL)
		if err := s.EnsureUploadDir(); err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		return NewS3StorageService(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// BuildStorageKey returns invoices/{user}/{yyyy}/{mm}/{uuid}{ext}.
func BuildStorageKey(userID, mimeType string, now time.Time) string {
	user := unsafeKeyChars.ReplaceAllString(userID, "_")
	return fmt.Sprintf("invoices/%s/%04d/%02d/%s%s",
		user, now.Year(), int(now.Month()), uuid.New().String(), extensionFor(mimeType))
}

type localStorageService struct {
	uploadPath    string
	publicBaseURL string
}

type LocalStorageService interface {
	StorageService
	EnsureUploadDir() error
}

func NewLocalStorageService(uploadPath, publicBaseURL string) LocalStorageService {
	return &localStorageService{
		uploadPath:    uploadPath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *localStorageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

func (s *localStorageService) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	filePath, err := s.pathFor(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return s.publicBaseURL + "/" + key, nil
}

func (s *localStorageService) Open(ctx context.Context, key string) ([]byte, error) {
	filePath, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *localStorageService) Delete(ctx context.Context, key string) error {
	filePath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// pathFor resolves key under uploadPath and rejects keys escaping it.
func (s *localStorageService) pathFor(key string) (string, error) {
	root := filepath.Clean(s.uploadPath)
	p := filepath.Join(root, filepath.FromSlash(key))
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return p, nil
}

// Package storage stores uploaded images and hands back public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotImage = errors.New("file must be an image")
	ErrTooLarge = errors.New("file is too large")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// BlobStore accepts an upload and returns a durable public URL.
type BlobStore interface {
	PutImage(ctx context.Context, folder string, r io.Reader) (string, error)
}

// LocalStore writes under Root and serves through BaseURL + "/uploads".
type LocalStore struct {
	Root     string
	BaseURL  string
	MaxBytes int64
}

func NewLocalStore(root, baseURL string, maxBytes int64) *LocalStore {
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}
}

// PutImage sniffs the content type, enforces the size cap and writes the file
// under a random name.
func (s *LocalStore) PutImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	folder = filepath.Base(filepath.Clean("/" + folder))
	if folder == "/" || folder == "." {
		folder = "misc"
	}

	data, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.MaxBytes)
	}
	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrNotImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s/%s", s.BaseURL, folder, name), nil
}

// IsImagePath is used to keep the public uploads route to image files only.
func IsImagePath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

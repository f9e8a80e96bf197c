package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// LocalUploader writes attachments to a directory served under /cdn/.
type LocalUploader struct {
	dir     string
	baseURL string
	mutex   sync.Mutex
}

func NewLocalUploader(dir, baseURL string) *LocalUploader {
	return &LocalUploader{dir: dir, baseURL: baseURL}
}

func (u *LocalUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// prefix with a random id so two uploads of the same file name
	// can't clobber each other
	fileName := fmt.Sprintf("%s-%s", uuid.New().String(), filepath.Base(name))
	fullPath := filepath.Join(u.dir, fileName)

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if err := os.MkdirAll(u.dir, os.ModePerm); err != nil {
		return "", err
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/cdn/%s", u.baseURL, url.PathEscape(fileName)), nil
}

// Dir is the directory the /cdn/ file server should serve.
func (u *LocalUploader) Dir() string {
	return u.dir
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arzan03/urbanscope/internal/storage"
)

var ErrUploadFailed = errors.New("upload failed")

// MediaStore records uploads and deletions. Uploaded images get sequential URLs.
type MediaStore struct {
	mu       sync.Mutex
	seq      int
	Uploaded []string
	Deleted  []string

	FailUpload bool
	// FailDelete lists URLs whose deletion is reported as failed.
	FailDelete map[string]bool
}

func (m *MediaStore) Upload(_ context.Context, images []storage.Image) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpload {
		return nil, ErrUploadFailed
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		m.seq++
		u := fmt.Sprintf("http://media.test/urban-scope/urban-scope/%d-%s", m.seq, img.Filename)
		urls = append(urls, u)
	}
	m.Uploaded = append(m.Uploaded, urls...)
	return urls, nil
}

func (m *MediaStore) Delete(_ context.Context, urls []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	failed := 0
	for _, u := range urls {
		m.Deleted = append(m.Deleted, u)
		if m.FailDelete[u] {
			failed++
		}
	}
	return failed
}

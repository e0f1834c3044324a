package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjects struct {
	mu        sync.Mutex
	puts      []string
	removes   []string
	failPutAt int
	removeErr error
}

func (f *fakeObjects) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPutAt > 0 && len(f.puts)+1 == f.failPutAt {
		return minio.UploadInfo{}, errors.New("bucket unavailable")
	}
	_, _ = io.ReadAll(reader)
	f.puts = append(f.puts, objectName)
	return minio.UploadInfo{Key: objectName}, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, _, objectName string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, objectName)
	return f.removeErr
}

func newRelay(f *fakeObjects) *MediaRelay {
	return NewMediaRelay(f, "urban-scope", "http://localhost:9000/", zap.NewNop())
}

func TestUpload_PreservesOrder(t *testing.T) {
	f := &fakeObjects{}
	relay := newRelay(f)

	urls, err := relay.Upload(context.Background(), []Image{
		{Filename: "front.JPG", Data: []byte("a")},
		{Filename: "kitchen.png", Data: []byte("b")},
		{Filename: "garden.webp", Data: []byte("c")},
	})
	require.NoError(t, err)
	require.Len(t, urls, 3)

	for i, u := range urls {
		assert.True(t, strings.HasPrefix(u, "http://localhost:9000/urban-scope/urban-scope/"), u)
		assert.True(t, strings.HasSuffix(u, f.puts[i]), "url %d should point at upload %d", i, i)
	}
	assert.True(t, strings.HasSuffix(urls[0], ".jpg"))
	assert.True(t, strings.HasSuffix(urls[1], ".png"))
}

func TestUpload_FailureCleansUpBatch(t *testing.T) {
	f := &fakeObjects{failPutAt: 3}
	relay := newRelay(f)

	urls, err := relay.Upload(context.Background(), []Image{
		{Filename: "1.jpg", Data: []byte("a")},
		{Filename: "2.jpg", Data: []byte("b")},
		{Filename: "3.jpg", Data: []byte("c")},
	})
	assert.Error(t, err)
	assert.Nil(t, urls)
	assert.ElementsMatch(t, f.puts, f.removes)
}

func TestDelete_AttemptsEveryURLDespiteFailures(t *testing.T) {
	f := &fakeObjects{removeErr: errors.New("gone")}
	relay := newRelay(f)

	urls := []string{
		"http://localhost:9000/urban-scope/urban-scope/a.jpg",
		"http://localhost:9000/urban-scope/urban-scope/b.jpg",
		"http://localhost:9000/urban-scope/urban-scope/c.jpg",
		"http://localhost:9000/urban-scope/urban-scope/d.jpg",
	}

	failed := relay.Delete(context.Background(), urls)

	assert.Equal(t, 4, failed)
	assert.Len(t, f.removes, 4)
}

func TestObjectName(t *testing.T) {
	relay := newRelay(&fakeObjects{})

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"bucket path", "http://localhost:9000/urban-scope/urban-scope/abc.jpg", "urban-scope/abc.jpg"},
		{"cdn prefix", "https://cdn.example.com/media/urban-scope/urban-scope/x.png", "urban-scope/x.png"},
		{"foreign host falls back to last segment", "https://img.example.com/v1/photos/house.jpg", "urban-scope/house.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := relay.ObjectName(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := relay.ObjectName("https://example.com/")
	assert.Error(t, err)
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/arzan03/urbanscope/internal/utils"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ImageFolder is the key prefix every listing image is stored under.
const ImageFolder = "urban-scope"

// ObjectAPI is the subset of *minio.Client the relay needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Image is one uploaded binary blob.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MediaRelay stores listing images in a bucket and hands back their public URLs.
type MediaRelay struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	log       *zap.Logger
}

func NewMediaRelay(client ObjectAPI, bucket, publicURL string, log *zap.Logger) *MediaRelay {
	return &MediaRelay{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Upload stores the images one after another and returns their URLs in input order.
// If any upload fails, the images already stored by this call are removed best-effort.
func (m *MediaRelay) Upload(ctx context.Context, images []Image) ([]string, error) {
	urls := make([]string, 0, len(images))

	for i, img := range images {
		objectName := m.objectNameFor(img.Filename)

		contentType := img.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(img.Data)
		}

		_, err := m.client.PutObject(ctx, m.bucket, objectName,
			bytes.NewReader(img.Data), int64(len(img.Data)),
			minio.PutObjectOptions{ContentType: contentType},
		)
		if err != nil {
			m.log.Error("Image upload failed",
				zap.Int("index", i),
				zap.String("object", objectName),
				zap.Error(err),
			)
			m.Delete(ctx, urls)
			return nil, fmt.Errorf("upload image %d: %w", i, err)
		}

		urls = append(urls, m.urlFor(objectName))
	}

	return urls, nil
}

// Delete removes the objects behind the URLs. Every URL is attempted; failures are
// logged and counted, never returned.
func (m *MediaRelay) Delete(ctx context.Context, urls []string) int {
	if len(urls) == 0 {
		return 0
	}

	tasks := make([]utils.ParallelTask, len(urls))
	for i, raw := range urls {
		raw := raw
		tasks[i] = func() error {
			objectName, err := m.ObjectName(raw)
			if err != nil {
				return err
			}
			return m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
		}
	}

	errs := utils.RunParallelTasks(tasks)
	for i, err := range errs {
		if err != nil {
			m.log.Warn("Image deletion failed",
				zap.String("url", urls[i]),
				zap.Error(err),
			)
		}
	}

	failed := utils.CountFailures(errs)
	m.log.Debug("Deleted images",
		zap.Int("attempted", len(urls)),
		zap.Int("failed", failed),
	)
	return failed
}

var errForeignURL = errors.New("not a hosted image URL")

// ObjectName derives the object key from a hosted image URL.
func (m *MediaRelay) ObjectName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	marker := "/" + m.bucket + "/"
	if idx := strings.Index(u.Path, marker); idx >= 0 {
		if key := u.Path[idx+len(marker):]; key != "" {
			return key, nil
		}
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return "", fmt.Errorf("%w: %s", errForeignURL, raw)
	}
	return ImageFolder + "/" + base, nil
}

func (m *MediaRelay) objectNameFor(filename string) string {
	return ImageFolder + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

func (m *MediaRelay) urlFor(objectName string) string {
	return m.publicURL + "/" + m.bucket + "/" + objectName
}

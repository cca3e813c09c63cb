package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/pkg/ctxutil"
	"github.com/atelierhq/atelier-backend/internal/utils"
)

// Bucket reads upload bytes back out of object storage for extraction. The
// upload path itself (signed URLs, the widget) lives outside this service.
type Bucket interface {
	DownloadObject(ctx context.Context, key string) ([]byte, error)
	ObjectURI(key string) string
	Close() error
}

type bucketService struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
}

func NewBucket(log *logger.Logger) (Bucket, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Bucket")

	bucketName := strings.TrimSpace(utils.GetEnv("GCS_BUCKET_NAME", "", log))
	if bucketName == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET_NAME")
	}

	c, err := storage.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &bucketService{log: slog, client: c, bucketName: bucketName}, nil
}

func (s *bucketService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *bucketService) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	r, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucketName, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucketName, key, err)
	}
	return data, nil
}

func (s *bucketService) ObjectURI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucketName, key)
}

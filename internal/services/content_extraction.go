package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/clients/redis"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/platform/gcp"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/sse"
	"github.com/atelierhq/atelier-backend/internal/types"
	"github.com/atelierhq/atelier-backend/internal/utils"
)

// ContentExtractionService pulls text out of project uploads so document
// generation can fold them into the file_content block. Extraction is
// asynchronous: an upload stuck in pending or failed never blocks a run, it
// just shows up as a placeholder line.
type ContentExtractionService interface {
	// ExtractUpload processes one claimed upload and persists the outcome.
	ExtractUpload(ctx context.Context, upload *types.Upload) error
	// ProcessPending claims and processes one batch. Returns the number of
	// uploads claimed.
	ProcessPending(ctx context.Context) (int, error)
	// Start runs the polling loop until ctx is cancelled.
	Start(ctx context.Context)
}

type contentExtractionService struct {
	db  *gorm.DB
	log *logger.Logger

	uploadRepo repos.UploadRepo

	bucket gcp.Bucket
	docai  gcp.Document
	speech gcp.Speech
	video  gcp.Video

	hub *sse.SSEHub
	bus redis.SSEBus

	docaiProjectID    string
	docaiLocation     string
	docaiProcessorID  string
	docaiProcessorVer string
	languageCode      string

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	maxDocBytes  int64
}

func NewContentExtractionService(
	db *gorm.DB,
	log *logger.Logger,
	uploadRepo repos.UploadRepo,
	bucket gcp.Bucket,
	docai gcp.Document,
	speech gcp.Speech,
	video gcp.Video,
	hub *sse.SSEHub,
	bus redis.SSEBus,
) ContentExtractionService {
	return &contentExtractionService{
		db:         db,
		log:        log.With("service", "ContentExtractionService"),
		uploadRepo: uploadRepo,
		bucket:     bucket,
		docai:      docai,
		speech:     speech,
		video:      video,
		hub:        hub,
		bus:        bus,

		docaiProjectID:    utils.GetEnv("DOCAI_PROJECT_ID", "", log),
		docaiLocation:     utils.GetEnv("DOCAI_LOCATION", "us", log),
		docaiProcessorID:  utils.GetEnv("DOCAI_PROCESSOR_ID", "", log),
		docaiProcessorVer: utils.GetEnv("DOCAI_PROCESSOR_VERSION", "", log),
		languageCode:      utils.GetEnv("EXTRACTION_LANGUAGE_CODE", "en-US", log),

		pollInterval: time.Duration(utils.GetEnvAsInt("EXTRACTION_POLL_SECONDS", 5, log)) * time.Second,
		batchSize:    utils.GetEnvAsInt("EXTRACTION_BATCH_SIZE", 8, log),
		concurrency:  utils.GetEnvAsInt("EXTRACTION_CONCURRENCY", 4, log),
		maxDocBytes:  int64(utils.GetEnvAsInt("EXTRACTION_MAX_DOC_MB", 20, log)) * 1024 * 1024,
	}
}

func (s *contentExtractionService) Start(ctx context.Context) {
	s.log.Info("content extraction worker started",
		"poll_interval", s.pollInterval.String(),
		"batch_size", s.batchSize,
		"concurrency", s.concurrency,
	)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("content extraction worker stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			if _, err := s.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("extraction batch failed", "error", err)
			}
		}
	}
}

func (s *contentExtractionService) ProcessPending(ctx context.Context) (int, error) {
	claimed, err := s.uploadRepo.ClaimPending(ctx, nil, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim pending uploads: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, upload := range claimed {
		up := upload
		g.Go(func() error {
			// Each upload records its own outcome; one failure must not
			// cancel the siblings.
			if err := s.ExtractUpload(gctx, up); err != nil {
				s.log.Error("upload extraction failed",
					"upload_id", up.ID,
					"project_id", up.ProjectID,
					"mime_type", up.MimeType,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed), nil
}

func (s *contentExtractionService) ExtractUpload(ctx context.Context, upload *types.Upload) error {
	started := time.Now()
	text, contentType, diagnostics, err := s.extract(ctx, upload)
	if err != nil {
		if markErr := s.uploadRepo.MarkFailed(ctx, nil, upload.ID, err.Error()); markErr != nil {
			s.log.Error("failed to mark upload failed", "upload_id", upload.ID, "error", markErr)
		}
		s.publish(ctx, upload, sse.SSEEventExtractionFailed, map[string]any{
			"upload_id": upload.ID,
			"file_name": upload.FileName,
			"error":     err.Error(),
		})
		return err
	}
	if contentType == types.ContentTypeBinary {
		if markErr := s.uploadRepo.MarkNotApplicable(ctx, nil, upload.ID); markErr != nil {
			return fmt.Errorf("mark upload not applicable: %w", markErr)
		}
		s.log.Info("upload has no extractable content",
			"upload_id", upload.ID,
			"mime_type", upload.MimeType,
		)
		return nil
	}
	if err := s.uploadRepo.MarkCompleted(ctx, nil, upload.ID, text, contentType, diagnostics); err != nil {
		return fmt.Errorf("mark upload completed: %w", err)
	}
	s.publish(ctx, upload, sse.SSEEventExtractionCompleted, map[string]any{
		"upload_id":    upload.ID,
		"file_name":    upload.FileName,
		"content_type": contentType,
	})
	s.log.Info("upload extraction completed",
		"upload_id", upload.ID,
		"mime_type", upload.MimeType,
		"content_type", contentType,
		"chars", len(text),
		"elapsed", time.Since(started).String(),
	)
	return nil
}

func (s *contentExtractionService) extract(ctx context.Context, upload *types.Upload) (string, string, datatypes.JSON, error) {
	mime := strings.ToLower(strings.TrimSpace(upload.MimeType))
	switch {
	case strings.HasPrefix(mime, "text/"), mime == "application/json", mime == "text/csv":
		return s.extractText(ctx, upload, mime)
	case strings.HasPrefix(mime, "audio/"):
		return s.extractAudio(ctx, upload)
	case strings.HasPrefix(mime, "video/"):
		return s.extractVideo(ctx, upload)
	case isDocumentMime(mime):
		return s.extractDocument(ctx, upload, mime)
	default:
		return "", types.ContentTypeBinary, nil, nil
	}
}

func isDocumentMime(mime string) bool {
	switch mime {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"image/png", "image/jpeg", "image/tiff":
		return true
	}
	return false
}

func (s *contentExtractionService) extractText(ctx context.Context, upload *types.Upload, mime string) (string, string, datatypes.JSON, error) {
	data, err := s.bucket.DownloadObject(ctx, upload.StorageKey)
	if err != nil {
		return "", "", nil, fmt.Errorf("download object: %w", err)
	}
	contentType := types.ContentTypeText
	if mime == "application/json" || mime == "text/csv" {
		contentType = types.ContentTypeStructuredData
	}
	return string(data), contentType, nil, nil
}

func (s *contentExtractionService) extractAudio(ctx context.Context, upload *types.Upload) (string, string, datatypes.JSON, error) {
	if s.speech == nil {
		return "", "", nil, fmt.Errorf("speech provider not configured")
	}
	result, err := s.speech.TranscribeAudioGCS(ctx, s.bucket.ObjectURI(upload.StorageKey), gcp.SpeechConfig{
		LanguageCode:               s.languageCode,
		EnableAutomaticPunctuation: true,
	})
	if err != nil {
		return "", "", nil, fmt.Errorf("transcribe audio: %w", err)
	}
	return result.PrimaryText, types.ContentTypeAudioTranscript, marshalDiagnostics(result.Provider, result.Warnings), nil
}

func (s *contentExtractionService) extractVideo(ctx context.Context, upload *types.Upload) (string, string, datatypes.JSON, error) {
	if s.video == nil {
		return "", "", nil, fmt.Errorf("video provider not configured")
	}
	result, err := s.video.TranscribeVideoGCS(ctx, s.bucket.ObjectURI(upload.StorageKey), gcp.VideoConfig{
		LanguageCode:               s.languageCode,
		EnableAutomaticPunctuation: true,
	})
	if err != nil {
		return "", "", nil, fmt.Errorf("transcribe video: %w", err)
	}
	return result.PrimaryText, types.ContentTypeVideoTranscript, marshalDiagnostics(result.Provider, result.Warnings), nil
}

func (s *contentExtractionService) extractDocument(ctx context.Context, upload *types.Upload, mime string) (string, string, datatypes.JSON, error) {
	if s.docai == nil {
		return "", "", nil, fmt.Errorf("document provider not configured")
	}
	if upload.SizeBytes > s.maxDocBytes {
		return "", "", nil, fmt.Errorf("document too large for extraction: %d bytes", upload.SizeBytes)
	}
	data, err := s.bucket.DownloadObject(ctx, upload.StorageKey)
	if err != nil {
		return "", "", nil, fmt.Errorf("download object: %w", err)
	}
	result, err := s.docai.ProcessBytes(ctx, gcp.DocAIProcessBytesRequest{
		ProjectID:        s.docaiProjectID,
		Location:         s.docaiLocation,
		ProcessorID:      s.docaiProcessorID,
		ProcessorVersion: s.docaiProcessorVer,
		MimeType:         mime,
		Data:             data,
	})
	if err != nil {
		return "", "", nil, fmt.Errorf("process document: %w", err)
	}
	return result.PrimaryText, types.ContentTypeText, marshalDiagnostics(result.Provider, result.Warnings), nil
}

func marshalDiagnostics(provider string, warnings []string) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{
		"provider": provider,
		"warnings": warnings,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *contentExtractionService) publish(ctx context.Context, upload *types.Upload, event sse.SSEEvent, data any) {
	msg := sse.SSEMessage{
		Channel: sse.ProjectChannel(upload.ProjectID),
		Event:   event,
		Data:    data,
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, msg); err != nil {
			s.log.Warn("failed to publish SSE event to redis", "event", string(event), "error", err)
			s.hub.Broadcast(msg)
		}
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

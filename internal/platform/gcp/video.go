package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/pkg/ctxutil"
)

// Video produces speech transcripts for video uploads.
type Video interface {
	TranscribeVideoGCS(ctx context.Context, gcsURI string, cfg VideoConfig) (*VideoResult, error)
	Close() error
}

type VideoConfig struct {
	LanguageCode               string
	EnableAutomaticPunctuation bool
}

type VideoResult struct {
	Provider    string   `json:"provider"`
	SourceURI   string   `json:"source_uri"`
	PrimaryText string   `json:"primary_text"`
	Warnings    []string `json:"warnings,omitempty"`
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries int
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Video")

	c, err := videointelligence.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{log: slog, client: c, maxRetries: 4}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) TranscribeVideoGCS(ctx context.Context, gcsURI string, cfg VideoConfig) (*VideoResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               cfg.LanguageCode,
				EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
			},
		},
	}

	resp, err := retry(ctx, s.maxRetries, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence annotate: %w", err)
	}

	out := &VideoResult{Provider: "gcp_videointelligence", SourceURI: gcsURI}
	var b strings.Builder
	for _, ann := range resp.GetAnnotationResults() {
		for _, st := range ann.GetSpeechTranscriptions() {
			if len(st.GetAlternatives()) == 0 {
				continue
			}
			transcript := strings.TrimSpace(st.GetAlternatives()[0].GetTranscript())
			if transcript == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(transcript)
		}
	}
	out.PrimaryText = b.String()
	return out, nil
}

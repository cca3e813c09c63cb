package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/pkg/ctxutil"
)

// Document extracts text from uploaded documents (PDF, Office, scans).
type Document interface {
	ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error)
	Close() error
}

type DocAIProcessBytesRequest struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	MimeType         string
	Data             []byte
}

type DocAIResult struct {
	Provider    string   `json:"provider"`
	Processor   string   `json:"processor"`
	MimeType    string   `json:"mime_type"`
	PrimaryText string   `json:"primary_text"`
	Warnings    []string `json:"warnings,omitempty"`
}

type documentService struct {
	log       *logger.Logger
	docClient *documentai.DocumentProcessorClient
}

func NewDocument(log *logger.Logger) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Document")

	location := strings.TrimSpace(os.Getenv("DOCUMENTAI_LOCATION"))
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(context.Background(), docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog.Info("Document AI initialized", "endpoint", endpoint)

	return &documentService{log: slog, docClient: c}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.docClient == nil {
		return nil
	}
	return s.docClient.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	if len(req.Data) == 0 {
		return &DocAIResult{Provider: "gcp_documentai", MimeType: req.MimeType, PrimaryText: ""}, nil
	}
	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}

	name := processorName(req.ProjectID, req.Location, req.ProcessorID, req.ProcessorVersion)

	r := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  req.Data,
				MimeType: req.MimeType,
			},
		},
	}

	resp, err := s.docClient.ProcessDocument(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocAIResult{Provider: "gcp_documentai", Processor: name, MimeType: req.MimeType, PrimaryText: ""}, nil
	}
	return &DocAIResult{
		Provider:    "gcp_documentai",
		Processor:   name,
		MimeType:    req.MimeType,
		PrimaryText: resp.Document.GetText(),
	}, nil
}

func processorName(projectID, location, processorID, version string) string {
	if version != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s", projectID, location, processorID, version)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID)
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/platform/gcp"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/sse"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type fakeBucket struct {
	objects map[string][]byte
	err     error
}

func (b *fakeBucket) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (b *fakeBucket) ObjectURI(key string) string { return "gs://test-bucket/" + key }
func (b *fakeBucket) Close() error                { return nil }

type fakeDocument struct{ text string }

func (d *fakeDocument) ProcessBytes(ctx context.Context, req gcp.DocAIProcessBytesRequest) (*gcp.DocAIResult, error) {
	return &gcp.DocAIResult{Provider: "documentai", PrimaryText: d.text}, nil
}
func (d *fakeDocument) Close() error { return nil }

type fakeSpeech struct{ transcript string }

func (s *fakeSpeech) TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string, cfg gcp.SpeechConfig) (*gcp.SpeechResult, error) {
	return &gcp.SpeechResult{Provider: "speech", PrimaryText: s.transcript}, nil
}

func (s *fakeSpeech) TranscribeAudioGCS(ctx context.Context, gcsURI string, cfg gcp.SpeechConfig) (*gcp.SpeechResult, error) {
	return &gcp.SpeechResult{Provider: "speech", SourceURI: gcsURI, PrimaryText: s.transcript}, nil
}
func (s *fakeSpeech) Close() error { return nil }

type fakeVideo struct{ transcript string }

func (v *fakeVideo) TranscribeVideoGCS(ctx context.Context, gcsURI string, cfg gcp.VideoConfig) (*gcp.VideoResult, error) {
	return &gcp.VideoResult{Provider: "videointelligence", SourceURI: gcsURI, PrimaryText: v.transcript}, nil
}
func (v *fakeVideo) Close() error { return nil }

type extractionOutcome struct {
	content       string
	contentType   string
	failedWith    string
	notApplicable bool
}

type recordingUploadRepo struct {
	repos.UploadRepo
	mu       sync.Mutex
	pending  []*types.Upload
	outcomes map[uuid.UUID]*extractionOutcome
}

func newRecordingUploadRepo(pending ...*types.Upload) *recordingUploadRepo {
	return &recordingUploadRepo{
		pending:  pending,
		outcomes: make(map[uuid.UUID]*extractionOutcome),
	}
}

func (r *recordingUploadRepo) ClaimPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error) {
	claimed := r.pending
	if len(claimed) > limit {
		claimed = claimed[:limit]
	}
	r.pending = r.pending[len(claimed):]
	for _, u := range claimed {
		u.ExtractionStatus = types.ExtractionStatusProcessing
	}
	return claimed, nil
}

func (r *recordingUploadRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, content, contentType string, diagnostics datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = &extractionOutcome{content: content, contentType: contentType}
	return nil
}

func (r *recordingUploadRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, extractionErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = &extractionOutcome{failedWith: extractionErr}
	return nil
}

func (r *recordingUploadRepo) MarkNotApplicable(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = &extractionOutcome{notApplicable: true}
	return nil
}

func newExtractionService(t *testing.T, uploadRepo repos.UploadRepo, bucket gcp.Bucket) ContentExtractionService {
	t.Helper()
	log := testLogger(t)
	return NewContentExtractionService(
		nil,
		log,
		uploadRepo,
		bucket,
		&fakeDocument{text: "document text"},
		&fakeSpeech{transcript: "audio transcript"},
		&fakeVideo{transcript: "video transcript"},
		sse.NewSSEHub(log),
		nil,
	)
}

func TestExtractUploadPlainText(t *testing.T) {
	upload := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "notes.txt", MimeType: "text/plain", StorageKey: "p/notes.txt"}
	repo := newRecordingUploadRepo()
	bucket := &fakeBucket{objects: map[string][]byte{"p/notes.txt": []byte("raw notes")}}
	svc := newExtractionService(t, repo, bucket)

	if err := svc.ExtractUpload(context.Background(), upload); err != nil {
		t.Fatalf("ExtractUpload: %v", err)
	}
	out := repo.outcomes[upload.ID]
	if out == nil || out.content != "raw notes" || out.contentType != types.ContentTypeText {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestExtractUploadDispatchesByMime(t *testing.T) {
	cases := []struct {
		mime        string
		wantContent string
		wantType    string
	}{
		{"application/pdf", "document text", types.ContentTypeText},
		{"audio/mpeg", "audio transcript", types.ContentTypeAudioTranscript},
		{"video/mp4", "video transcript", types.ContentTypeVideoTranscript},
		{"application/json", `{"k":1}`, types.ContentTypeStructuredData},
	}
	for _, tc := range cases {
		upload := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "f", MimeType: tc.mime, StorageKey: "p/f", SizeBytes: 10}
		repo := newRecordingUploadRepo()
		bucket := &fakeBucket{objects: map[string][]byte{"p/f": []byte(`{"k":1}`)}}
		svc := newExtractionService(t, repo, bucket)

		if err := svc.ExtractUpload(context.Background(), upload); err != nil {
			t.Fatalf("%s: ExtractUpload: %v", tc.mime, err)
		}
		out := repo.outcomes[upload.ID]
		if out == nil {
			t.Fatalf("%s: no outcome recorded", tc.mime)
		}
		if out.content != tc.wantContent {
			t.Fatalf("%s: expected content %q, got %q", tc.mime, tc.wantContent, out.content)
		}
		if out.contentType != tc.wantType {
			t.Fatalf("%s: expected content type %q, got %q", tc.mime, tc.wantType, out.contentType)
		}
	}
}

func TestExtractUploadUnknownMimeIsNotApplicable(t *testing.T) {
	upload := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "assets.zip", MimeType: "application/zip", StorageKey: "p/assets.zip"}
	repo := newRecordingUploadRepo()
	svc := newExtractionService(t, repo, &fakeBucket{})

	if err := svc.ExtractUpload(context.Background(), upload); err != nil {
		t.Fatalf("ExtractUpload: %v", err)
	}
	out := repo.outcomes[upload.ID]
	if out == nil || !out.notApplicable {
		t.Fatalf("expected not_applicable outcome, got %+v", out)
	}
}

func TestExtractUploadFailureMarksFailed(t *testing.T) {
	upload := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "notes.txt", MimeType: "text/plain", StorageKey: "p/notes.txt"}
	repo := newRecordingUploadRepo()
	bucket := &fakeBucket{err: errors.New("bucket unavailable")}
	svc := newExtractionService(t, repo, bucket)

	err := svc.ExtractUpload(context.Background(), upload)
	if err == nil {
		t.Fatalf("expected error")
	}
	out := repo.outcomes[upload.ID]
	if out == nil || out.failedWith == "" {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
	if !strings.Contains(out.failedWith, "bucket unavailable") {
		t.Fatalf("failure message should carry the cause: %q", out.failedWith)
	}
}

func TestProcessPendingProcessesWholeBatch(t *testing.T) {
	u1 := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "a.txt", MimeType: "text/plain", StorageKey: "p/a.txt"}
	u2 := &types.Upload{ID: uuid.New(), ProjectID: uuid.New(), FileName: "b.txt", MimeType: "text/plain", StorageKey: "p/b.txt"}
	repo := newRecordingUploadRepo(u1, u2)
	bucket := &fakeBucket{objects: map[string][]byte{
		"p/a.txt": []byte("alpha"),
		"p/b.txt": []byte("beta"),
	}}
	svc := newExtractionService(t, repo, bucket)

	n, err := svc.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 claimed, got %d", n)
	}
	if repo.outcomes[u1.ID] == nil || repo.outcomes[u2.ID] == nil {
		t.Fatalf("expected both uploads processed")
	}
	if repo.outcomes[u1.ID].content != "alpha" || repo.outcomes[u2.ID].content != "beta" {
		t.Fatalf("unexpected contents: %+v %+v", repo.outcomes[u1.ID], repo.outcomes[u2.ID])
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/surroundsense/surroundsense/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPipeline struct {
	run   func(ctx context.Context, videoPath, audioPath string) (*pipeline.Result, error)
	calls int
}

func (s *stubPipeline) Run(ctx context.Context, videoPath, audioPath string) (*pipeline.Result, error) {
	s.calls++
	return s.run(ctx, videoPath, audioPath)
}

func multipartVideo(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("fake video bytes")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestProcessVideoSuccess(t *testing.T) {
	uploadDir := t.TempDir()
	p := &stubPipeline{
		run: func(ctx context.Context, videoPath, audioPath string) (*pipeline.Result, error) {
			// The upload must be buffered to disk before the pipeline runs.
			if _, err := os.Stat(videoPath); err != nil {
				t.Errorf("video not buffered at %s: %v", videoPath, err)
			}
			return &pipeline.Result{
				Summary:  "A quiet street with shops on the left.",
				AudioRef: filepath.Base(audioPath),
			}, nil
		},
	}
	srv := New(p, nil, uploadDir, discardLogger())

	body, contentType := multipartVideo(t, "walk.mp4")
	req := httptest.NewRequest(http.MethodPost, "/process_video/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler([]string{"*"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TextSummary string `json:"text_summary"`
		AudioFile   string `json:"audio_file"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TextSummary != "A quiet street with shops on the left." {
		t.Errorf("text_summary = %q", resp.TextSummary)
	}
	if !strings.HasPrefix(resp.AudioFile, "/download_audio/") || !strings.HasSuffix(resp.AudioFile, "_output.mp3") {
		t.Errorf("audio_file = %q", resp.AudioFile)
	}

	// The transient upload must be gone after the request.
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "walk.mp4") {
			t.Errorf("uploaded video %s not cleaned up", e.Name())
		}
	}
}

func TestProcessVideoGateFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDetail string
	}{
		{"no content", pipeline.ErrNoContent, "Failed to extract content from video."},
		{"summarization", fmt.Errorf("%w: timeout", pipeline.ErrSummarizationFailed), "LLM summarization failed."},
		{"audio", fmt.Errorf("%w: engine down", pipeline.ErrAudioGenerationFailed), "Audio generation failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploadDir := t.TempDir()
			p := &stubPipeline{
				run: func(ctx context.Context, videoPath, audioPath string) (*pipeline.Result, error) {
					return nil, tt.err
				},
			}
			srv := New(p, nil, uploadDir, discardLogger())

			body, contentType := multipartVideo(t, "walk.mp4")
			req := httptest.NewRequest(http.MethodPost, "/process_video/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			srv.Handler([]string{"*"}).ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp struct {
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", resp.Detail, tt.wantDetail)
			}

			// Cleanup must happen on failure paths too.
			entries, err := os.ReadDir(uploadDir)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), "walk.mp4") {
					t.Errorf("uploaded video %s not cleaned up after failure", e.Name())
				}
			}
		})
	}
}

func TestProcessVideoMissingFile(t *testing.T) {
	srv := New(&stubPipeline{run: nil}, nil, t.TempDir(), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/process_video/", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()

	srv.Handler([]string{"*"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDownloadAudio(t *testing.T) {
	uploadDir := t.TempDir()
	audio := []byte("mp3 bytes")
	if err := os.WriteFile(filepath.Join(uploadDir, "abc_output.mp3"), audio, 0644); err != nil {
		t.Fatal(err)
	}
	srv := New(&stubPipeline{run: nil}, nil, uploadDir, discardLogger())
	handler := srv.Handler([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/download_audio/abc_output.mp3", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), audio) {
		t.Error("served bytes differ from artifact")
	}
}

func TestDownloadAudioNotFound(t *testing.T) {
	srv := New(&stubPipeline{run: nil}, nil, t.TempDir(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/download_audio/nope_output.mp3", nil)
	rec := httptest.NewRecorder()
	srv.Handler([]string{"*"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadAudioRejectsTraversal(t *testing.T) {
	uploadDir := t.TempDir()
	outside := filepath.Join(filepath.Dir(uploadDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := New(&stubPipeline{run: nil}, nil, uploadDir, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/download_audio/"+"..%2Fsecret.txt", nil)
	rec := httptest.NewRecorder()
	srv.Handler([]string{"*"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := New(&stubPipeline{run: nil}, nil, t.TempDir(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler([]string{"*"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

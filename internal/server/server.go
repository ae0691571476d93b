// Package server exposes the pipeline over HTTP: multipart video upload in,
// summary text and an audio artifact reference out.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/surroundsense/surroundsense/internal/pipeline"
	"github.com/surroundsense/surroundsense/internal/storage"
)

const maxUploadBytes = 256 << 20

// Pipeline is the single contract the HTTP layer holds with the core.
type Pipeline interface {
	Run(ctx context.Context, videoPath, audioPath string) (*pipeline.Result, error)
}

type Server struct {
	pipeline  Pipeline
	store     storage.Store // may be nil
	uploadDir string
	logger    *slog.Logger
}

func New(p Pipeline, store storage.Store, uploadDir string, logger *slog.Logger) *Server {
	return &Server{
		pipeline:  p,
		store:     store,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Handler builds the route table, wrapped with CORS.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process_video/", s.handleProcessVideo)
	mux.HandleFunc("GET /download_audio/{audio_filename}", s.handleDownloadAudio)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

type processResponse struct {
	TextSummary string `json:"text_summary"`
	AudioFile   string `json:"audio_file"`
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing video file upload")
		return
	}
	defer file.Close()

	id := uuid.NewString()
	videoPath := filepath.Join(s.uploadDir, id+"_"+filepath.Base(header.Filename))

	if err := saveUpload(file, videoPath); err != nil {
		s.logger.Error("failed to buffer upload", "error", err)
		writeDetail(w, http.StatusInternalServerError, "failed to store uploaded video")
		return
	}
	// The uploaded video is transient regardless of which gate fails.
	defer os.Remove(videoPath)

	audioName := id + "_output.mp3"
	audioPath := filepath.Join(s.uploadDir, audioName)

	result, err := s.pipeline.Run(r.Context(), videoPath, audioPath)
	if err != nil {
		detail := gateDetail(err)
		s.logger.Error("pipeline failed", "video", header.Filename, "detail", detail, "error", err)
		s.recordRun(r.Context(), storage.Run{
			ID:         uuid.MustParse(id),
			SourceName: header.Filename,
			Status:     storage.RunFailed,
			Detail:     detail,
			CreatedAt:  time.Now().UTC(),
		})
		writeDetail(w, http.StatusInternalServerError, detail)
		return
	}

	s.recordRun(r.Context(), storage.Run{
		ID:         uuid.MustParse(id),
		SourceName: header.Filename,
		Summary:    result.Summary,
		AudioKey:   result.AudioRef,
		Status:     storage.RunCompleted,
		CreatedAt:  time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, processResponse{
		TextSummary: result.Summary,
		AudioFile:   "/download_audio/" + result.AudioRef,
	})
}

func (s *Server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("audio_filename")
	if name == "" || name != filepath.Base(name) {
		writeDetail(w, http.StatusNotFound, "Audio file not found")
		return
	}

	path := filepath.Join(s.uploadDir, name)
	if _, err := os.Stat(path); err != nil {
		writeDetail(w, http.StatusNotFound, "Audio file not found")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeDetail(w, http.StatusNotFound, "run history not configured")
		return
	}

	runs, err := s.store.ListRecent(r.Context(), 20)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) recordRun(ctx context.Context, run storage.Run) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Warn("failed to record run", "run", run.ID, "error", err)
	}
}

// gateDetail maps a pipeline error to the human-readable reason returned to
// clients, naming the gate that failed.
func gateDetail(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrNoContent):
		return "Failed to extract content from video."
	case errors.Is(err, pipeline.ErrSummarizationFailed):
		return "LLM summarization failed."
	case errors.Is(err, pipeline.ErrAudioGenerationFailed):
		return "Audio generation failed."
	default:
		return fmt.Sprintf("Internal Server Error: %v", err)
	}
}

func saveUpload(src io.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(destPath)
		return err
	}
	return out.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

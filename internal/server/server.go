package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"neuralchat/internal/app"
)

// maxUploadBytes caps the in-memory portion of a multipart upload.
const maxUploadBytes = 10 << 20

// Server is the HTTP boundary over the ingestion and answering pipeline.
type Server struct {
	app           *app.App
	uploadDir     string
	allowedOrigin string
}

func New(a *app.App, uploadDir, allowedOrigin string) *Server {
	return &Server{app: a, uploadDir: uploadDir, allowedOrigin: allowedOrigin}
}

// Handler builds the route table with CORS applied to every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/upload", s.uploadHandler)
	mux.HandleFunc("/ask", s.askHandler)
	return s.cors(mux)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /upload: repeated "files" parts plus an optional "youtube_url"
// form value. Uploaded files are spooled into a per-request directory
// that the pipeline consumes and the handler removes afterwards.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	youtubeURL := strings.TrimSpace(r.FormValue("youtube_url"))
	if len(headers) == 0 && youtubeURL == "" {
		writeError(w, http.StatusBadRequest, app.ErrNoContent.Error())
		return
	}

	tmpDir, err := os.MkdirTemp(s.uploadDir, "upload-")
	if err != nil {
		log.Printf("upload dir: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store uploads")
		return
	}
	defer os.RemoveAll(tmpDir)

	var sources []app.Source
	for _, fh := range headers {
		kind, ok := kindForFilename(fh.Filename)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", fh.Filename))
			return
		}
		path, err := saveUpload(fh, tmpDir)
		if err != nil {
			log.Printf("save upload %s: %v", fh.Filename, err)
			writeError(w, http.StatusInternalServerError, "failed to store uploads")
			return
		}
		sources = append(sources, app.Source{Kind: kind, Name: fh.Filename, Path: path})
	}
	if youtubeURL != "" {
		sources = append(sources, app.Source{Kind: app.SourceYouTube, URL: youtubeURL})
	}

	manifest, err := s.app.Ingest(r.Context(), sources)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "files processed successfully",
		"uploaded_files": manifest,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// POST /ask: {"question": "..."} -> {"answer": "..."}.
func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.app.Ask(r.Context(), req.Question)
	if err != nil {
		// Pipeline errors carry user-facing text already; pass it through.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func kindForFilename(name string) (app.SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return app.SourcePDF, true
	case ".md", ".markdown":
		return app.SourceMarkdown, true
	case ".txt":
		return app.SourceText, true
	}
	return "", false
}

func saveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, filepath.Base(fh.Filename)))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return dst.Name(), nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrNoContent),
		errors.Is(err, app.ErrInvalidURL),
		errors.Is(err, app.ErrTooManyVideos):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

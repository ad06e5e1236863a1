package upload

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Akashh18/Webrtc/internal/metrics"
)

// Server is the HTTP surface of the upload service: a single multipart
// endpoint that accepts one chunk per request.
type Server struct {
	log           *slog.Logger
	metrics       *metrics.Metrics
	store         *Store
	maxChunkBytes int64
	allowedOrigin string
}

func NewServer(store *Store, maxChunkBytes int64, allowedOrigin string, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		log:           logger,
		metrics:       m,
		store:         store,
		maxChunkBytes: maxChunkBytes,
		allowedOrigin: allowedOrigin,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("OPTIONS /upload", func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleUpload accepts multipart form fields fileName, chunkIndex and
// totalChunks plus a "file" part carrying the chunk bytes. Responses are the
// plain-text bodies the web client matches on.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w)

	// Bound the whole request, not just the file part; the form fields are
	// tiny next to the chunk.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxChunkBytes+4096)

	if err := r.ParseMultipartForm(s.maxChunkBytes); err != nil {
		s.reject(w, r, "malformed multipart request", err)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fileName := r.FormValue("fileName")
	chunkIndex, errIdx := strconv.Atoi(r.FormValue("chunkIndex"))
	totalChunks, errTotal := strconv.Atoi(r.FormValue("totalChunks"))
	if fileName == "" || errIdx != nil || errTotal != nil {
		s.reject(w, r, "missing or non-numeric chunk fields", nil)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.reject(w, r, "missing file part", err)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if err := s.store.SaveChunk(fileName, chunkIndex, totalChunks, file); err != nil {
		if errors.Is(err, ErrInvalidFileName) || errors.Is(err, ErrInvalidChunk) {
			s.reject(w, r, "invalid chunk coordinates", err)
			return
		}
		s.log.Error("chunk upload failed", "file", fileName, "chunk", chunkIndex, "err", err)
		http.Error(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Chunk uploaded successfully"))
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, reason string, err error) {
	s.metrics.Inc(metrics.UploadRequestRejected)
	s.log.Warn("upload request rejected", "reason", reason, "remote_addr", r.RemoteAddr, "err", err)
	http.Error(w, "Upload failed", http.StatusBadRequest)
}

func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// Package upload persists chunked file uploads: clients split a file into
// numbered chunks, POST them one by one, and the final chunk triggers
// assembly into the complete file.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Akashh18/Webrtc/internal/metrics"
)

var (
	ErrInvalidFileName = errors.New("invalid file name")
	ErrInvalidChunk    = errors.New("invalid chunk coordinates")
)

// Store writes in-flight chunks to <dir>/<fileName>.chunks/<index> and, when
// the last chunk lands, assembles them in order into <dir>/<fileName>.
type Store struct {
	log        *slog.Logger
	metrics    *metrics.Metrics
	dir        string
	maxRetries int
	retryDelay time.Duration

	// Chunks for one file arrive sequentially from a single client; one
	// mutex keeps chunk placement and assembly from interleaving.
	mu sync.Mutex
}

func NewStore(dir string, maxRetries int, logger *slog.Logger, m *metrics.Metrics) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		log:        logger,
		metrics:    m,
		dir:        dir,
		maxRetries: maxRetries,
		retryDelay: 100 * time.Millisecond,
	}, nil
}

// SaveChunk persists one chunk, retrying transient filesystem failures up to
// the configured attempt count. When chunkIndex == totalChunks-1 it also
// assembles the complete file and removes the chunk directory.
func (s *Store) SaveChunk(fileName string, chunkIndex, totalChunks int, r io.Reader) error {
	if !validFileName(fileName) {
		return ErrInvalidFileName
	}
	if totalChunks <= 0 || chunkIndex < 0 || chunkIndex >= totalChunks {
		return ErrInvalidChunk
	}

	// The reader is consumed once; retries replay the buffered bytes.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read chunk %d of %q: %w", chunkIndex, fileName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunkDir := filepath.Join(s.dir, fileName+".chunks")
	chunkPath := filepath.Join(chunkDir, strconv.Itoa(chunkIndex))

	err = s.withRetries(fileName, chunkIndex, func() error {
		return writeChunk(chunkDir, chunkPath, data)
	})
	if err != nil {
		s.metrics.Inc(metrics.UploadFailed)
		return fmt.Errorf("persist chunk %d of %q: %w", chunkIndex, fileName, err)
	}
	s.metrics.Inc(metrics.UploadChunkSaved)

	if chunkIndex != totalChunks-1 {
		return nil
	}

	err = s.withRetries(fileName, chunkIndex, func() error {
		return s.assemble(fileName, chunkDir, totalChunks)
	})
	if err != nil {
		s.metrics.Inc(metrics.UploadFailed)
		return fmt.Errorf("assemble %q: %w", fileName, err)
	}
	s.metrics.Inc(metrics.UploadFileAssembled)
	s.log.Info("upload assembled", "file", fileName, "chunks", totalChunks)
	return nil
}

func (s *Store) withRetries(fileName string, chunkIndex int, op func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == s.maxRetries {
			break
		}
		s.metrics.Inc(metrics.UploadChunkRetried)
		s.log.Warn("chunk operation failed, retrying",
			"file", fileName, "chunk", chunkIndex, "attempt", attempt, "err", err)
		time.Sleep(s.retryDelay)
	}
	return err
}

// writeChunk lands data at chunkPath through a temp file so a crashed write
// never leaves a truncated chunk behind.
func writeChunk(chunkDir, chunkPath string, data []byte) error {
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(chunkDir, ".partial-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), chunkPath)
}

func (s *Store) assemble(fileName, chunkDir string, totalChunks int) error {
	tmp, err := os.CreateTemp(s.dir, ".assembling-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	for i := 0; i < totalChunks; i++ {
		chunk, err := os.Open(filepath.Join(chunkDir, strconv.Itoa(i)))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		_, err = io.Copy(tmp, chunk)
		_ = chunk.Close()
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, fileName)); err != nil {
		return err
	}
	return os.RemoveAll(chunkDir)
}

// validFileName rejects anything that could escape the upload directory.
func validFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name
}

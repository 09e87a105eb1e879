package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/opd-ai/cinetidy/internal/parser"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Scanner walks a source root and discovers video files eligible for
// planning.
type Scanner struct {
	videoExtensions []string
	minFileSize     int64
	numWorkers      int // 0 = auto-detect from CPU count
}

// NewScanner creates a Scanner matching the given extensions (case
// insensitive, dot-prefixed or not) and minimum file size in bytes.
func NewScanner(videoExts []string, minSize int64) *Scanner {
	return &Scanner{
		videoExtensions: normalizeExtensions(videoExts),
		minFileSize:     minSize,
	}
}

// SetNumWorkers sets the number of concurrent workers (0 = auto-detect).
func (s *Scanner) SetNumWorkers(n int) {
	s.numWorkers = n
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Files  []types.VideoFile
	Errors []error
}

// Scan walks rootPath sequentially and returns every matching video file.
func (s *Scanner) Scan(rootPath string) (*ScanResult, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", rootPath)
	}

	result := &ScanResult{Files: make([]types.VideoFile, 0), Errors: make([]error, 0)}

	log.Info().Str("path", rootPath).Msg("Starting directory scan")

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path")
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if d.IsDir() {
			if isHidden(d.Name()) && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) {
			return nil
		}
		if !s.isVideoFile(path) {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to get file info")
			result.Errors = append(result.Errors, fmt.Errorf("failed to get file info for %s: %w", path, err))
			return nil
		}
		if fileInfo.Size() < s.minFileSize {
			log.Debug().Str("path", path).Int64("size", fileInfo.Size()).Msg("File too small, skipping")
			return nil
		}

		result.Files = append(result.Files, types.VideoFile{
			Path:     path,
			Size:     fileInfo.Size(),
			ModTime:  fileInfo.ModTime(),
			IsSample: parser.IsSample(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	log.Info().Int("count", len(result.Files)).Int("errors", len(result.Errors)).Msg("Scan complete")
	return result, nil
}

// ScanConcurrent walks rootPath using a bounded worker pool, useful for
// source trees spread across slow network storage.
func (s *Scanner) ScanConcurrent(ctx context.Context, rootPath string) (*ScanResult, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", rootPath)
	}

	numWorkers := s.numWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	log.Info().Str("path", rootPath).Int("workers", numWorkers).Msg("Starting concurrent directory scan")

	pool := NewWorkerPool(numWorkers)
	files, err := pool.ScanConcurrent(ctx, rootPath, s.videoExtensions, s.minFileSize)
	if err != nil {
		return nil, fmt.Errorf("concurrent scan failed: %w", err)
	}

	log.Info().Int("count", len(files)).Int("workers", numWorkers).Msg("Concurrent scan complete")
	return &ScanResult{Files: files, Errors: make([]error, 0)}, nil
}

func (s *Scanner) isVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return contains(s.videoExtensions, ext)
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func normalizeExtensions(exts []string) []string {
	normalized := make([]string, len(exts))
	for i, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}

func contains(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

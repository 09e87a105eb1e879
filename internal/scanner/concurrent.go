package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/opd-ai/cinetidy/internal/parser"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// WorkerPool scans a directory tree with bounded concurrency.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a worker pool for concurrent scanning.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool{numWorkers: numWorkers}
}

type fileScanResult struct {
	file  types.VideoFile
	match bool
	err   error
}

// ScanConcurrent walks rootPath and returns every video file matching
// extensions and at least minSize bytes.
func (wp *WorkerPool) ScanConcurrent(ctx context.Context, rootPath string, extensions []string, minSize int64) ([]types.VideoFile, error) {
	pathChan := make(chan string, 100)
	resultChan := make(chan fileScanResult, 100)

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go wp.worker(ctx, &wg, pathChan, resultChan, extensions, minSize)
	}

	go func() {
		defer close(pathChan)
		wp.walkDirectory(ctx, rootPath, pathChan)
	}()

	files := make([]types.VideoFile, 0)
	var resultWg sync.WaitGroup
	resultWg.Add(1)
	go func() {
		defer resultWg.Done()
		for result := range resultChan {
			if result.err != nil {
				log.Debug().Err(result.err).Msg("Error processing file")
				continue
			}
			if result.match {
				files = append(files, result.file)
			}
		}
	}()

	wg.Wait()
	close(resultChan)
	resultWg.Wait()

	return files, nil
}

func (wp *WorkerPool) worker(ctx context.Context, wg *sync.WaitGroup, pathChan <-chan string, resultChan chan<- fileScanResult, extensions []string, minSize int64) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-pathChan:
			if !ok {
				return
			}
			result := wp.processFile(path, extensions, minSize)
			if result != nil {
				select {
				case resultChan <- *result:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) processFile(path string, extensions []string, minSize int64) *fileScanResult {
	info, err := os.Stat(path)
	if err != nil {
		return &fileScanResult{err: err}
	}
	if info.IsDir() {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !containsExtension(ext, extensions) {
		return nil
	}
	if info.Size() < minSize {
		return nil
	}
	return &fileScanResult{match: true, file: types.VideoFile{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		IsSample: parser.IsSample(path),
	}}
}

func (wp *WorkerPool) walkDirectory(ctx context.Context, rootPath string, pathChan chan<- string) {
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Error accessing path")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := info.Name()
		if isHidden(name) && path != rootPath {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			select {
			case pathChan <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		log.Debug().Err(err).Str("root", rootPath).Msg("Directory walk error")
	}
}

func containsExtension(ext string, extensions []string) bool {
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWorkerPool_ScanConcurrent(t *testing.T) {
	tests := []struct {
		name       string
		numWorkers int
		files      map[string]string
		extensions []string
		wantCount  int
	}{
		{
			name:       "single worker",
			numWorkers: 1,
			files:      map[string]string{"movie1.mkv": "", "movie2.mp4": "", "show1.mkv": ""},
			extensions: []string{".mkv", ".mp4"},
			wantCount:  3,
		},
		{
			name:       "multiple workers",
			numWorkers: 4,
			files: map[string]string{
				"movie1.mkv": "", "movie2.mp4": "", "movie3.avi": "",
				"movie4.mkv": "", "show1.mkv": "", "show2.mp4": "",
			},
			extensions: []string{".mkv", ".mp4", ".avi"},
			wantCount:  6,
		},
		{
			name:       "filter by extension",
			numWorkers: 2,
			files:      map[string]string{"movie1.mkv": "", "movie2.txt": "", "movie3.mp4": "", "readme.md": ""},
			extensions: []string{".mkv", ".mp4"},
			wantCount:  2,
		},
		{
			name:       "zero workers defaults to 1",
			numWorkers: 0,
			files:      map[string]string{"movie1.mkv": ""},
			extensions: []string{".mkv"},
			wantCount:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			for filename := range tt.files {
				path := filepath.Join(tempDir, filename)
				if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			}

			pool := NewWorkerPool(tt.numWorkers)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			files, err := pool.ScanConcurrent(ctx, tempDir, tt.extensions, 0)
			if err != nil {
				t.Fatalf("ScanConcurrent() error = %v", err)
			}

			if len(files) != tt.wantCount {
				t.Errorf("ScanConcurrent() got %d files, want %d", len(files), tt.wantCount)
			}
			for _, f := range files {
				if f.Path == "" {
					t.Error("File has empty path")
				}
			}
		})
	}
}

func TestWorkerPool_ContextCancellation(t *testing.T) {
	tempDir := t.TempDir()
	for i := 0; i < 100; i++ {
		filename := fmt.Sprintf("movie%03d.mkv", i)
		path := filepath.Join(tempDir, filename)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	pool := NewWorkerPool(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.ScanConcurrent(ctx, tempDir, []string{".mkv"}, 0)
	if err != nil && err != context.Canceled {
		t.Errorf("Expected nil or context.Canceled, got %v", err)
	}
}

func TestWorkerPool_NonExistentDirectory(t *testing.T) {
	pool := NewWorkerPool(2)

	ctx := context.Background()
	files, err := pool.ScanConcurrent(ctx, "/non/existent/path", []string{".mkv"}, 0)

	if err != nil {
		t.Errorf("Expected no error for non-existent directory, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected 0 results, got %d", len(files))
	}
}

func TestWorkerPool_HiddenFiles(t *testing.T) {
	tempDir := t.TempDir()

	hiddenPath := filepath.Join(tempDir, ".hidden.mkv")
	if err := os.WriteFile(hiddenPath, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create hidden file: %v", err)
	}
	normalPath := filepath.Join(tempDir, "visible.mkv")
	if err := os.WriteFile(normalPath, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create normal file: %v", err)
	}

	pool := NewWorkerPool(2)

	ctx := context.Background()
	files, err := pool.ScanConcurrent(ctx, tempDir, []string{".mkv"}, 0)
	if err != nil {
		t.Fatalf("ScanConcurrent() error = %v", err)
	}

	if len(files) != 1 {
		t.Errorf("Expected 1 file (hidden should be skipped), got %d", len(files))
	}
	if len(files) > 0 && filepath.Base(files[0].Path) != "visible.mkv" {
		t.Errorf("Expected visible.mkv, got %s", files[0].Path)
	}
}

func BenchmarkWorkerPool_Sequential(b *testing.B) {
	benchmarkWorkerPool(b, 1)
}

func BenchmarkWorkerPool_Parallel2(b *testing.B) {
	benchmarkWorkerPool(b, 2)
}

func BenchmarkWorkerPool_Parallel4(b *testing.B) {
	benchmarkWorkerPool(b, 4)
}

func BenchmarkWorkerPool_Parallel8(b *testing.B) {
	benchmarkWorkerPool(b, 8)
}

func benchmarkWorkerPool(b *testing.B, numWorkers int) {
	tempDir := b.TempDir()
	for i := 0; i < 100; i++ {
		filename := fmt.Sprintf("movie%03d.mkv", i)
		path := filepath.Join(tempDir, filename)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			b.Fatalf("Failed to create test file: %v", err)
		}
	}

	pool := NewWorkerPool(numWorkers)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pool.ScanConcurrent(ctx, tempDir, []string{".mkv"}, 0)
	}
}

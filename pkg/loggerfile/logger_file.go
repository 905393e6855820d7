// Package loggerfile provides a per-session file logger used to capture a
// round-by-round trace independent of the console logger, so a single
// session's history can be inspected without grepping through every node's
// interleaved stdout.
package loggerfile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var globalLogDir = "logs"

func SetGlobalLogDir(logDir string) { globalLogDir = logDir }
func GetGlobalLogDir() string       { return globalLogDir }

type FileLogger struct {
	file  *os.File
	mutex sync.Mutex
}

// NewFileLogger opens (creating if needed) a log file under the global log
// directory. filePath may contain subdirectories, e.g. "3/session-1.log".
func NewFileLogger(filePath string) (*FileLogger, error) {
	dir := filepath.Dir(filepath.Join(globalLogDir, filePath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(globalLogDir, filePath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileLogger{file: file}, nil
}

func (fl *FileLogger) Log(message string) {
	if fl == nil {
		return
	}
	fl.mutex.Lock()
	defer fl.mutex.Unlock()
	if _, err := fmt.Fprintf(fl.file, "%s: %s\n", time.Now().Format(time.RFC3339), message); err != nil {
		log.Printf("loggerfile: write failed: %v", err)
	}
}

func (fl *FileLogger) Info(message interface{}, a ...interface{}) {
	if fl == nil {
		return
	}
	fl.Log(fmt.Sprintf(fmt.Sprint(message), a...))
}

func (fl *FileLogger) Close() {
	if fl == nil {
		return
	}
	if err := fl.file.Close(); err != nil {
		log.Printf("loggerfile: close failed: %v", err)
	}
}

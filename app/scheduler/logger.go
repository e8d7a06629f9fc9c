// Package scheduler contains the background workers of the fire engine:
// materialization, execution, and retention trimming.
package scheduler

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewWorkerLogger builds a logger writing to stdout and, when a path is
// given, to a size-rotated file
func NewWorkerLogger(prefix, filePath string) *log.Logger {
	var w io.Writer = os.Stdout
	if filePath != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	return log.New(w, prefix+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

package services

import (
	"context"
	"log"
)

// LogErrorReporter reports dropped work to the process log. It stands in
// until an ops channel integration exists.
type LogErrorReporter struct {
	logger *log.Logger
}

// NewLogErrorReporter creates a new log-based error reporter
func NewLogErrorReporter(logger *log.Logger) *LogErrorReporter {
	if logger == nil {
		logger = log.Default()
	}
	return &LogErrorReporter{logger: logger}
}

// ReportError logs the failure with its subject
func (r *LogErrorReporter) ReportError(ctx context.Context, subject string, err error) {
	r.logger.Printf("REPORT %s: %v", subject, err)
}

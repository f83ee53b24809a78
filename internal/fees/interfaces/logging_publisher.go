package interfaces

import (
	"context"
	"errors"
	"log"

	"library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
)

// LoggingPublisher logs report generated events.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishReportGenerated logs the event.
func (p *LoggingPublisher) PublishReportGenerated(ctx context.Context, event application.ReportGenerated) error {
	_ = ctx
	if p == nil {
		return errors.New("fee report publisher: nil publisher")
	}
	p.logger.Printf("fee report generated: run=%s branch=%s input=%s patrons=%d total=%s",
		event.RunID, event.BranchID, event.InputName, event.PatronCount, fees.FormatAmount(event.TotalFees))
	return nil
}

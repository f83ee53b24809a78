package interfaces

import (
	"context"
	"errors"
	"strings"

	"library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	"library-fees/internal/notify"
)

// NotifyPublisher forwards report generated events to a notifier.
type NotifyPublisher struct {
	notifier notify.Notifier
	baseURL  string
	currency string
}

// NewNotifyPublisher constructs a publisher. baseURL, when set, is used to
// link the PDF export of the run.
func NewNotifyPublisher(notifier notify.Notifier, baseURL, currency string) *NotifyPublisher {
	return &NotifyPublisher{notifier: notifier, baseURL: strings.TrimRight(baseURL, "/"), currency: currency}
}

// PublishReportGenerated sends the notification.
func (p *NotifyPublisher) PublishReportGenerated(ctx context.Context, event application.ReportGenerated) error {
	if p == nil || p.notifier == nil {
		return nil
	}
	msg := notify.ReportMessage{
		BranchID:    event.BranchID,
		RunID:       event.RunID,
		InputName:   event.InputName,
		RecordCount: event.RecordCount,
		PatronCount: event.PatronCount,
		TotalFees:   fees.FormatAmount(event.TotalFees),
	}
	if p.baseURL != "" {
		msg.ReportURL = p.baseURL + reportsPath + "/" + event.RunID + "/export.pdf"
	}
	if p.currency != "" {
		msg.Meta = map[string]string{"currency": p.currency}
	}
	return p.notifier.Notify(ctx, msg)
}

// MultiPublisher fans events out to several publishers.
type MultiPublisher struct {
	publishers []application.ReportPublisher
}

// NewMultiPublisher constructs a MultiPublisher.
func NewMultiPublisher(publishers ...application.ReportPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// PublishReportGenerated forwards the event to every publisher and joins their errors.
func (m *MultiPublisher) PublishReportGenerated(ctx context.Context, event application.ReportGenerated) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, publisher := range m.publishers {
		if publisher == nil {
			continue
		}
		if err := publisher.PublishReportGenerated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	fees "library-fees/internal/fees/domain"
	"library-fees/internal/fees/infrastructure/csvio"
	"library-fees/internal/observability/metrics"
)

// RecordSource yields raw loan records and returns io.EOF when exhausted.
type RecordSource interface {
	Next() (fees.RawLoanRecord, error)
}

// ReportSink receives a finished report as a full replacement of its contents.
type ReportSink interface {
	WriteReport(ctx context.Context, report fees.Report) error
}

// ReportCache maps an input fingerprint to a stored run id.
type ReportCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RunMetadata describes where a report's input came from.
type RunMetadata struct {
	BranchID    string
	InputName   string
	InputDigest string
}

// ErrNoRunRepository is returned by run lookups on a service built without a repository.
var ErrNoRunRepository = errors.New("fee report service: no run repository")

// ReportService computes per-patron late-fee reports.
type ReportService struct {
	format    fees.DateFormat
	runs      fees.ReportRunRepository
	publisher ReportPublisher
	cache     ReportCache
	cacheTTL  time.Duration
	clock     Clock
	newID     func() string
	logger    *log.Logger
}

// Option configures a ReportService.
type Option func(*ReportService)

// WithRunRepository stores every generated run.
func WithRunRepository(repo fees.ReportRunRepository) Option {
	return func(s *ReportService) { s.runs = repo }
}

// WithPublisher emits ReportGenerated events.
func WithPublisher(publisher ReportPublisher) Option {
	return func(s *ReportService) { s.publisher = publisher }
}

// WithCache reuses stored runs for identical uploads.
func WithCache(cache ReportCache, ttl time.Duration) Option {
	return func(s *ReportService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithClock overrides the run timestamp source.
func WithClock(clock Clock) Option {
	return func(s *ReportService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *ReportService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the event logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *ReportService) { s.logger = logger }
}

// NewReportService constructs the service for one pre-declared date format.
func NewReportService(format fees.DateFormat, opts ...Option) (*ReportService, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("fee report service: date format %q: %w", format, fees.ErrUnsupportedDateFormat)
	}
	s := &ReportService{
		format: format,
		clock:  SystemClock{},
		newID:  uuid.NewString,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DateFormat returns the format every date field must use.
func (s *ReportService) DateFormat() fees.DateFormat {
	return s.format
}

// BuildReport reads every record, computes its late fee and totals fees by
// patron. The first bad record aborts the pass.
func (s *ReportService) BuildReport(source RecordSource) (fees.Report, error) {
	if source == nil {
		return fees.Report{}, errors.New("fee report service: nil source")
	}
	acc := fees.NewFeeAccumulator()
	count := 0
	for {
		raw, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fees.Report{}, err
		}
		record, err := fees.ParseLoanRecord(raw, s.format)
		if err != nil {
			return fees.Report{}, err
		}
		if err := acc.Add(record.PatronID, record.LateFee()); err != nil {
			return fees.Report{}, err
		}
		count++
	}
	return fees.Report{Rows: acc.Rows(), RecordCount: count}, nil
}

// Generate builds the report, writes it to sink and records the run.
// Nothing reaches sink unless every record was read and parsed.
// Once the sink holds the report the run has succeeded: a failure to store
// or announce it is logged and the run is still returned.
func (s *ReportService) Generate(ctx context.Context, source RecordSource, sink ReportSink, meta RunMetadata) (*fees.ReportRun, error) {
	run, _, err := s.observeGenerate(ctx, source, sink, meta)
	return run, err
}

func (s *ReportService) observeGenerate(ctx context.Context, source RecordSource, sink ReportSink, meta RunMetadata) (*fees.ReportRun, bool, error) {
	start := time.Now()
	run, saved, err := s.generate(ctx, source, sink, meta)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		s.logf("event=fee_report_failed branch_id=%s input=%s error=%v", meta.BranchID, meta.InputName, err)
	}
	metrics.ObserveReportGenerate(result, time.Since(start))
	return run, saved, err
}

// generate reports whether the run reached the repository.
func (s *ReportService) generate(ctx context.Context, source RecordSource, sink ReportSink, meta RunMetadata) (*fees.ReportRun, bool, error) {
	if sink == nil {
		return nil, false, errors.New("fee report service: nil sink")
	}
	report, err := s.BuildReport(source)
	if err != nil {
		return nil, false, err
	}
	if err := sink.WriteReport(ctx, report); err != nil {
		return nil, false, fmt.Errorf("write report: %w", err)
	}

	run := fees.NewReportRun(s.newID(), report, s.format, s.clock.Now())
	run.BranchID = meta.BranchID
	run.InputName = meta.InputName
	run.InputDigest = meta.InputDigest
	if digester, ok := source.(interface{ Digest() string }); ok && run.InputDigest == "" {
		run.InputDigest = digester.Digest()
	}

	saved := false
	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			s.logf("event=fee_report_save_failed run_id=%s error=%v", run.ID, err)
		} else {
			saved = true
		}
	}

	total, _ := run.TotalFees.Float64()
	metrics.ObserveReportContents(run.RecordCount, run.PatronCount, total)
	s.logf("event=fee_report_generated run_id=%s branch_id=%s input=%s records=%d patrons=%d total=%s",
		run.ID, run.BranchID, run.InputName, run.RecordCount, run.PatronCount, fees.FormatAmount(run.TotalFees))

	if s.publisher != nil {
		err := s.publisher.PublishReportGenerated(ctx, ReportGenerated{
			RunID:       run.ID,
			BranchID:    run.BranchID,
			InputName:   run.InputName,
			RecordCount: run.RecordCount,
			PatronCount: run.PatronCount,
			TotalFees:   run.TotalFees,
			OccurredAt:  run.CreatedAt,
		})
		if err != nil {
			s.logf("event=fee_report_publish_failed run_id=%s error=%v", run.ID, err)
		}
	}
	return run, saved, nil
}

// GenerateFile reads inPath and replaces outPath with the report. The
// output file is not created when reading or parsing fails.
func (s *ReportService) GenerateFile(ctx context.Context, inPath, outPath string, meta RunMetadata) (*fees.ReportRun, error) {
	source, err := csvio.OpenFile(inPath)
	if err != nil {
		metrics.ObserveReportGenerate(metrics.ResultError, 0)
		s.logf("event=fee_report_failed branch_id=%s input=%s error=%v", meta.BranchID, inPath, err)
		return nil, err
	}
	defer source.Close()

	if meta.InputName == "" {
		meta.InputName = filepath.Base(inPath)
	}
	return s.Generate(ctx, source, csvio.NewFileSink(outPath), meta)
}

// GenerateUpload builds a report from an in-memory CSV upload. An upload
// whose name and bytes match a cached run of the same branch returns that
// stored run instead.
func (s *ReportService) GenerateUpload(ctx context.Context, data []byte, meta RunMetadata) (*fees.ReportRun, bool, error) {
	sum := sha256.Sum256(data)
	meta.InputDigest = hex.EncodeToString(sum[:])
	key := s.cacheKey(meta)

	if run, ok := s.cachedRun(ctx, key); ok {
		return run, true, nil
	}

	reader, err := csvio.NewReader(bytes.NewReader(data))
	if err != nil {
		metrics.ObserveReportGenerate(metrics.ResultError, 0)
		s.logf("event=fee_report_failed branch_id=%s input=%s error=%v", meta.BranchID, meta.InputName, err)
		return nil, false, err
	}
	run, saved, err := s.observeGenerate(ctx, reader, &csvio.BufferSink{}, meta)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil && saved {
		if err := s.cache.Set(ctx, key, run.ID, s.cacheTTL); err != nil {
			s.logf("event=fee_report_cache_failed run_id=%s error=%v", run.ID, err)
		}
	}
	return run, false, nil
}

func (s *ReportService) cacheKey(meta RunMetadata) string {
	return fmt.Sprintf("fee-report:%s:%s:%s:%s", s.format, meta.BranchID, meta.InputDigest, url.QueryEscape(meta.InputName))
}

func (s *ReportService) cachedRun(ctx context.Context, key string) (*fees.ReportRun, bool) {
	if s.cache == nil || s.runs == nil {
		return nil, false
	}
	runID, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logf("event=fee_report_cache_failed key=%s error=%v", key, err)
	}
	if err != nil || !ok {
		metrics.IncReportCache(false)
		return nil, false
	}
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		metrics.IncReportCache(false)
		return nil, false
	}
	metrics.IncReportCache(true)
	return run, true
}

// GetRun returns a stored run with its rows.
func (s *ReportService) GetRun(ctx context.Context, id string) (*fees.ReportRun, error) {
	if s.runs == nil {
		return nil, ErrNoRunRepository
	}
	return s.runs.Get(ctx, id)
}

// ListRuns returns recent runs for a branch, newest first.
func (s *ReportService) ListRuns(ctx context.Context, branchID string, limit int) ([]fees.ReportRun, error) {
	if s.runs == nil {
		return nil, ErrNoRunRepository
	}
	return s.runs.ListRecent(ctx, branchID, limit)
}

func (s *ReportService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

package interfaces

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"library-fees/internal/audit"
	"library-fees/internal/auth"
	"library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	"library-fees/internal/observability/metrics"
)

const reportsPath = "/api/v1/fee-reports"

// FeeReportHandler serves late-fee report APIs.
type FeeReportHandler struct {
	service        *application.ReportService
	auditLogger    audit.Logger
	currency       string
	maxUploadBytes int64
	listLimit      int
	logger         *log.Logger
}

// NewFeeReportHandler constructs a handler.
func NewFeeReportHandler(service *application.ReportService, cfg application.Config, auditLogger audit.Logger, logger *log.Logger) (*FeeReportHandler, error) {
	if service == nil {
		return nil, errors.New("fee report handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FeeReportHandler{
		service:        service,
		auditLogger:    auditLogger,
		currency:       cfg.Currency,
		maxUploadBytes: cfg.MaxUploadBytes,
		listLimit:      cfg.ListLimit,
		logger:         logger,
	}, nil
}

// ServeHTTP handles routes under /api/v1/fee-reports.
func (h *FeeReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == reportsPath {
		switch r.Method {
		case http.MethodPost:
			h.handleGenerate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.HasPrefix(path, reportsPath+"/") && r.Method == http.MethodGet {
		h.handleByID(w, r, strings.TrimPrefix(path, reportsPath+"/"))
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

type generateResponse struct {
	Cached bool            `json:"cached"`
	Run    *fees.ReportRun `json:"run"`
}

func (h *FeeReportHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	meta := application.RunMetadata{
		BranchID:  id.BranchID,
		InputName: strings.TrimSpace(r.URL.Query().Get("name")),
	}
	if meta.InputName == "" {
		meta.InputName = "upload.csv"
	}
	run, cached, err := h.service.GenerateUpload(r.Context(), data, meta)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if cached {
		status = http.StatusOK
	}
	writeJSON(w, status, generateResponse{Cached: cached, Run: run})
	h.logAudit(r, run, "fee_report.generate", map[string]any{
		"input_name":   run.InputName,
		"input_digest": run.InputDigest,
		"records":      run.RecordCount,
		"cached":       cached,
	})
}

func (h *FeeReportHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := h.listLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if limit <= 0 || parsed < limit {
			limit = parsed
		}
	}

	id, _ := auth.IdentityFromContext(r.Context())
	branchID := id.ListBranch(r.URL.Query().Get("branch_id"))
	runs, err := h.service.ListRuns(r.Context(), branchID, limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if runs == nil {
		runs = []fees.ReportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *FeeReportHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 {
		run, ok := h.loadRun(w, r, id)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	switch parts[1] {
	case "export.csv":
		h.handleExport(w, r, id, "csv", "text/csv; charset=utf-8", func(run *fees.ReportRun) ([]byte, error) {
			return BuildReportCSV(run)
		})
	case "export.xlsx":
		h.handleExport(w, r, id, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(run *fees.ReportRun) ([]byte, error) {
			return BuildReportXLSX(run, h.currency)
		})
	case "export.pdf":
		h.handleExport(w, r, id, "pdf", "application/pdf", func(run *fees.ReportRun) ([]byte, error) {
			return BuildReportPDF(run, h.currency)
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FeeReportHandler) handleExport(w http.ResponseWriter, r *http.Request, id, format, contentType string, build func(*fees.ReportRun) ([]byte, error)) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport(format, result, time.Since(start))
	}()

	run, ok := h.loadRun(w, r, id)
	if !ok {
		result = metrics.ResultError
		return
	}
	data, err := build(run)
	if err != nil {
		result = metrics.ResultError
		h.logger.Printf("event=fee_report_export_failed run_id=%s format=%s error=%v", id, format, err)
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\"late_fees_"+run.ID+"."+format+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, run, "fee_report.export", map[string]any{"format": format})
}

func (h *FeeReportHandler) loadRun(w http.ResponseWriter, r *http.Request, id string) (*fees.ReportRun, bool) {
	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	if err := auth.EnsureBranch(r.Context(), run.BranchID); err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	return run, true
}

func (h *FeeReportHandler) logAudit(r *http.Request, run *fees.ReportRun, action string, meta map[string]any) {
	if h.auditLogger == nil || run == nil {
		return
	}
	err := h.auditLogger.Log(r.Context(), audit.RequestEntry(r, run.BranchID, action, "fee_report", run.ID, meta))
	if err != nil {
		h.logger.Printf("event=audit_failed action=%s run_id=%s error=%v", action, run.ID, err)
	}
}

func (h *FeeReportHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, fees.ErrReportRunNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, auth.ErrBranchMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, fees.ErrMalformedDate),
		errors.Is(err, fees.ErrMissingField),
		errors.Is(err, fees.ErrMalformedRecord):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, application.ErrNoRunRepository):
		http.Error(w, "report storage not configured", http.StatusServiceUnavailable)
	default:
		h.logger.Printf("event=fee_report_request_failed error=%v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

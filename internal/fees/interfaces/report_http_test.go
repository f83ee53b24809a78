package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-fees/internal/audit"
	"library-fees/internal/auth"
	"library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	"library-fees/internal/fees/infrastructure/memory"
)

const uploadCSV = "patron_id,date_due,date_returned\nP1,01/10/2024,01/14/2024\nP2,01/10/2024,01/09/2024\nP2,01/12/2024,01/21/2024\n"

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

func newTestHandler(t *testing.T, maxUpload int64) (*FeeReportHandler, *recordingAudit) {
	t.Helper()
	svc, err := application.NewReportService(fees.DateFormatFourDigitYear,
		application.WithRunRepository(memory.NewReportRunRepository()),
		application.WithCache(memory.NewReportCache(), 0),
		application.WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, err)
	recorder := &recordingAudit{}
	cfg := application.Config{Currency: "USD", MaxUploadBytes: maxUpload, ListLimit: 10}
	handler, err := NewFeeReportHandler(svc, cfg, recorder, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return handler, recorder
}

func do(handler http.Handler, method, target, branch string, role auth.Role, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "user-1", BranchID: branch, Role: role}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func generate(t *testing.T, handler http.Handler, branch, body string) generateResponse {
	t.Helper()
	resp := do(handler, http.MethodPost, "/api/v1/fee-reports?name=returns.csv", branch, auth.RoleLibrarian, body)
	require.Contains(t, []int{http.StatusCreated, http.StatusOK}, resp.Code, resp.Body.String())
	var out generateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestNewFeeReportHandler_NilService(t *testing.T) {
	_, err := NewFeeReportHandler(nil, application.Config{}, nil, nil)
	assert.Error(t, err)
}

func TestFeeReportHandler_GenerateAndFetch(t *testing.T) {
	handler, recorder := newTestHandler(t, 1<<20)

	resp := do(handler, http.MethodPost, "/api/v1/fee-reports?name=returns.csv", "main", auth.RoleLibrarian, uploadCSV)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `{"patron_id":"P1","late_fees":"1.00"}`)
	assert.Contains(t, resp.Body.String(), `{"patron_id":"P2","late_fees":"2.25"}`)

	var created generateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.False(t, created.Cached)
	assert.Equal(t, "main", created.Run.BranchID)
	assert.Equal(t, "returns.csv", created.Run.InputName)

	again := generate(t, handler, "main", uploadCSV)
	assert.True(t, again.Cached)
	assert.Equal(t, created.Run.ID, again.Run.ID)

	get := do(handler, http.MethodGet, "/api/v1/fee-reports/"+created.Run.ID, "main", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, get.Code)
	var run fees.ReportRun
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &run))
	require.Len(t, run.Rows, 2)
	assert.Equal(t, "2.25", run.Rows[1].FormattedLateFees())

	list := do(handler, http.MethodGet, "/api/v1/fee-reports", "main", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, list.Code)
	var runs []fees.ReportRun
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	assert.Equal(t, []string{"fee_report.generate", "fee_report.generate"}, recorder.actions())
}

func TestFeeReportHandler_Exports(t *testing.T) {
	handler, recorder := newTestHandler(t, 1<<20)
	created := generate(t, handler, "main", uploadCSV)
	base := "/api/v1/fee-reports/" + created.Run.ID

	csvResp := do(handler, http.MethodGet, base+"/export.csv", "main", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, csvResp.Code)
	assert.Equal(t, "patron_id,late_fees\nP1,1.00\nP2,2.25\n", csvResp.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", csvResp.Header().Get("Content-Type"))

	xlsxResp := do(handler, http.MethodGet, base+"/export.xlsx", "main", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, xlsxResp.Code)
	assert.True(t, bytes.HasPrefix(xlsxResp.Body.Bytes(), []byte("PK")))

	pdfResp := do(handler, http.MethodGet, base+"/export.pdf", "main", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, pdfResp.Code)
	assert.True(t, bytes.HasPrefix(pdfResp.Body.Bytes(), []byte("%PDF")))

	unknown := do(handler, http.MethodGet, base+"/export.txt", "main", auth.RoleViewer, "")
	assert.Equal(t, http.StatusNotFound, unknown.Code)

	actions := recorder.actions()
	assert.Equal(t, []string{"fee_report.generate", "fee_report.export", "fee_report.export", "fee_report.export"}, actions)
}

func TestFeeReportHandler_Errors(t *testing.T) {
	handler, _ := newTestHandler(t, 64)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "malformed date", method: http.MethodPost, target: "/api/v1/fee-reports", body: "patron_id,date_due,date_returned\nP1,x,y\n", want: http.StatusBadRequest},
		{name: "missing column", method: http.MethodPost, target: "/api/v1/fee-reports", body: "patron_id,date_due\n", want: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, target: "/api/v1/fee-reports", body: uploadCSV, want: http.StatusRequestEntityTooLarge},
		{name: "unknown run", method: http.MethodGet, target: "/api/v1/fee-reports/nope", want: http.StatusNotFound},
		{name: "bad limit", method: http.MethodGet, target: "/api/v1/fee-reports?limit=x", want: http.StatusBadRequest},
		{name: "method", method: http.MethodDelete, target: "/api/v1/fee-reports", want: http.StatusMethodNotAllowed},
		{name: "nested path", method: http.MethodGet, target: "/api/v1/fee-reports/a/b/c", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(handler, tt.method, tt.target, "main", auth.RoleLibrarian, tt.body)
			assert.Equal(t, tt.want, resp.Code, resp.Body.String())
		})
	}
}

func TestFeeReportHandler_BranchIsolation(t *testing.T) {
	handler, recorder := newTestHandler(t, 1<<20)
	created := generate(t, handler, "main", uploadCSV)
	target := "/api/v1/fee-reports/" + created.Run.ID

	other := do(handler, http.MethodGet, target, "east", auth.RoleViewer, "")
	assert.Equal(t, http.StatusForbidden, other.Code)

	admin := do(handler, http.MethodGet, target, "east", auth.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, admin.Code)

	adminExport := do(handler, http.MethodGet, target+"/export.csv", "east", auth.RoleAdmin, "")
	require.Equal(t, http.StatusOK, adminExport.Code)
	recorder.mu.Lock()
	last := recorder.entries[len(recorder.entries)-1]
	recorder.mu.Unlock()
	assert.Equal(t, "fee_report.export", last.Action)
	assert.Equal(t, "main", last.BranchID)
	assert.Equal(t, "admin", last.Role)
	assert.Equal(t, "user-1", last.Actor)
	assert.Equal(t, created.Run.ID, last.ResourceID)

	list := do(handler, http.MethodGet, "/api/v1/fee-reports", "east", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, "[]", list.Body.String())
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLoggingPublisher(log.New(&buf, "", 0))
	err := pub.PublishReportGenerated(context.Background(), application.ReportGenerated{RunID: "run-1", BranchID: "main", PatronCount: 2})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run=run-1 branch=main")
	assert.Contains(t, buf.String(), "total=0.00")
}

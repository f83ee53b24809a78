package integration_test

import (
	"context"
	"database/sql"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"library-fees/internal/audit"
	"library-fees/internal/auth"
	"library-fees/internal/eventing"
	eventingrepo "library-fees/internal/eventing/infrastructure/postgres"
	feeapp "library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	feememory "library-fees/internal/fees/infrastructure/memory"
	feerepo "library-fees/internal/fees/infrastructure/postgres"
	feeinterfaces "library-fees/internal/fees/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestFeeReport_GenerateStoreAndExport(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	branchID := "branch-integration"
	_, _ = db.ExecContext(ctx, "DELETE FROM fee_report_runs WHERE branch_id = $1", branchID)
	_, _ = db.ExecContext(ctx, "DELETE FROM audit_logs WHERE branch_id = $1", branchID)
	_, _ = db.ExecContext(ctx, "DELETE FROM event_outbox WHERE branch_id = $1", branchID)

	dir := t.TempDir()
	inPath := filepath.Join(dir, "book_returns.csv")
	outPath := filepath.Join(dir, "late_fees.csv")
	input := "date_checkout,patron_id,date_due,date_returned\n" +
		"01/01/2024,P1,01/10/2024,01/14/2024\n" +
		"01/02/2024,P2,01/10/2024,01/09/2024\n" +
		"01/03/2024,P2,01/12/2024,01/21/2024\n"
	if err := os.WriteFile(inPath, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	repo := feerepo.NewReportRunRepository(db)
	outboxStore := eventingrepo.NewOutboxStore(db)
	createdAt := time.Date(2026, time.February, 1, 9, 30, 0, 0, time.UTC)
	service, err := feeapp.NewReportService(fees.DateFormatFourDigitYear,
		feeapp.WithRunRepository(repo),
		feeapp.WithCache(feememory.NewReportCache(), time.Hour),
		feeapp.WithClock(fixedClock{now: createdAt}),
		feeapp.WithPublisher(feeinterfaces.NewOutboxPublisher(eventing.NewPublisher(outboxStore, nil))),
		feeapp.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	run, err := service.GenerateFile(ctx, inPath, outPath, feeapp.RunMetadata{BranchID: branchID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	written, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	stored, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if stored.PatronCount != 2 || stored.RecordCount != 3 {
		t.Fatalf("unexpected counts: %+v", stored)
	}
	if fees.FormatAmount(stored.TotalFees) != "3.25" {
		t.Fatalf("total mismatch: %s", stored.TotalFees)
	}
	if !stored.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at mismatch: %s", stored.CreatedAt)
	}
	if len(stored.Rows) != 2 || stored.Rows[0].PatronID != "P1" || stored.Rows[1].PatronID != "P2" {
		t.Fatalf("rows out of order: %+v", stored.Rows)
	}

	// saving again replaces the rows
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("resave: %v", err)
	}
	runs, err := repo.ListRecent(ctx, branchID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Rows != nil {
		t.Fatalf("unexpected list: %+v", runs)
	}

	if _, err := repo.Get(ctx, "missing-run"); err != fees.ErrReportRunNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	handler, err := feeinterfaces.NewFeeReportHandler(service, feeapp.Config{Currency: "USD", MaxUploadBytes: 1 << 20, ListLimit: 10}, audit.NewRepository(db), nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-reports/"+run.ID+"/export.csv", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "user-1", BranchID: branchID, Role: auth.RoleViewer}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("csv status %d", resp.Code)
	}
	if resp.Body.String() != string(written) {
		t.Fatalf("export differs from file output:\n%s\n%s", resp.Body.String(), written)
	}

	upload := httptest.NewRequest(http.MethodPost, "/api/v1/fee-reports", strings.NewReader(input))
	upload = upload.WithContext(auth.WithIdentity(upload.Context(), auth.Identity{Subject: "user-2", BranchID: branchID, Role: auth.RoleLibrarian}))
	uploadResp := httptest.NewRecorder()
	handler.ServeHTTP(uploadResp, upload)
	if uploadResp.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", uploadResp.Code, uploadResp.Body.String())
	}

	var audits int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE branch_id = $1", branchID).Scan(&audits); err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if audits != 2 {
		t.Fatalf("expected 2 audit entries, got %d", audits)
	}

	assertOutboxDelivered(t, ctx, db, outboxStore, branchID)
}

func assertOutboxDelivered(t *testing.T, ctx context.Context, db *sql.DB, store *eventingrepo.OutboxStore, branchID string) {
	t.Helper()
	var delivered []string
	dispatcher := eventing.NewDispatcher(store, func(ctx context.Context, env eventing.Envelope) error {
		if env.BranchID == branchID {
			delivered = append(delivered, env.EventType)
		}
		return nil
	})
	if err := dispatcher.Dispatch(ctx, 100); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered events, got %v", delivered)
	}
	for _, eventType := range delivered {
		if eventType != feeapp.ReportGeneratedEvent {
			t.Fatalf("unexpected event type %s", eventType)
		}
	}

	var pending int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_outbox WHERE branch_id = $1 AND status = 'pending'", branchID).Scan(&pending); err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending outbox rows, got %d", pending)
	}
}

func applyMigrations(db *sql.DB) error {
	root := projectRoot()
	files := []string{
		filepath.Join(root, "migrations", "001_fee_reports.sql"),
		filepath.Join(root, "migrations", "002_audit.sql"),
		filepath.Join(root, "migrations", "003_event_outbox.sql"),
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}

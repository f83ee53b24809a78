package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"library-fees/internal/auth"
	feeapp "library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	feerepo "library-fees/internal/fees/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	inPath     string
	outPath    string
	dateFormat string
	branchID   string
	dbURL      string
	print      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	format, err := fees.ParseDateFormat(cfg.dateFormat)
	if err != nil {
		fmt.Fprintf(stderr, "date format %q: %v\n", cfg.dateFormat, err)
		return 2
	}

	opts := []feeapp.Option{feeapp.WithLogger(log.New(stderr, "", log.LstdFlags))}
	if cfg.dbURL != "" {
		db, err := sql.Open("pgx", cfg.dbURL)
		if err != nil {
			fmt.Fprintln(stderr, "db open:", err)
			return 2
		}
		defer db.Close()
		opts = append(opts, feeapp.WithRunRepository(feerepo.NewReportRunRepository(db)))
	}

	service, err := feeapp.NewReportService(format, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	reportRun, err := service.GenerateFile(context.Background(), cfg.inPath, cfg.outPath, feeapp.RunMetadata{BranchID: auth.NormalizeBranchID(cfg.branchID)})
	if err != nil {
		fmt.Fprintln(stderr, "generate:", err)
		return 1
	}

	if cfg.print {
		data, err := os.ReadFile(cfg.outPath)
		if err != nil {
			fmt.Fprintln(stderr, "read output:", err)
			return 1
		}
		_, _ = stdout.Write(data)
		return 0
	}
	fmt.Fprintf(stdout, "wrote %s: %d records, %d patrons, total %s\n",
		cfg.outPath, reportRun.RecordCount, reportRun.PatronCount, fees.FormatAmount(reportRun.TotalFees))
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("feereport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.inPath, "in", "", "input CSV of book returns")
	fs.StringVar(&cfg.outPath, "out", "", "output CSV of late fees per patron")
	fs.StringVar(&cfg.dateFormat, "date-format", getenvDefault("FEES_DATE_FORMAT", string(fees.DefaultDateFormat)), "date format: MM/DD/YYYY or MM/DD/YY")
	fs.StringVar(&cfg.branchID, "branch", getenvDefault("BRANCH_ID", ""), "library branch code recorded with the run")
	fs.StringVar(&cfg.dbURL, "db", "", "Postgres DSN to record the run; nothing is stored when empty")
	fs.BoolVar(&cfg.print, "print", false, "print the written report")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.inPath == "" {
		return cfg, errors.New("missing --in")
	}
	if cfg.outPath == "" {
		return cfg, errors.New("missing --out")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

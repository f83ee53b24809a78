package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"library-fees/internal/audit"
	"library-fees/internal/auth"
	"library-fees/internal/eventing"
	eventingrepo "library-fees/internal/eventing/infrastructure/postgres"
	feeapp "library-fees/internal/fees/application"
	fees "library-fees/internal/fees/domain"
	feememory "library-fees/internal/fees/infrastructure/memory"
	feerepo "library-fees/internal/fees/infrastructure/postgres"
	feeredis "library-fees/internal/fees/infrastructure/redis"
	feeinterfaces "library-fees/internal/fees/interfaces"
	"library-fees/internal/notify"
	"library-fees/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	feeCfg, err := feeapp.LoadConfig()
	if err != nil {
		logger.Fatalf("fees config error: %v", err)
	}
	format, err := feeCfg.Format()
	if err != nil {
		logger.Fatalf("fees config error: %v", err)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
	}

	metrics.Init(db, logger)

	var subscribers feeapp.ReportPublisher = feeinterfaces.NewLoggingPublisher(logger)
	if cfg.WebhookURL != "" {
		webhook := feeinterfaces.NewNotifyPublisher(notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout), cfg.PublicBaseURL, feeCfg.Currency)
		subscribers = feeinterfaces.NewMultiPublisher(subscribers, webhook)
	}
	publisher := subscribers
	var runRepo fees.ReportRunRepository = feememory.NewReportRunRepository()
	var auditLogger audit.Logger = audit.NewLogLogger(logger)
	if db != nil {
		runRepo = feerepo.NewReportRunRepository(db)
		auditLogger = audit.NewRepository(db)
		outboxStore := eventingrepo.NewOutboxStore(db)
		dispatcher := eventing.NewDispatcher(outboxStore, feeinterfaces.ReportGeneratedHandler(subscribers))
		publisher = feeinterfaces.NewOutboxPublisher(eventing.NewPublisher(outboxStore, dispatcher))
	} else {
		logger.Printf("DATABASE_URL not set, report runs kept in memory")
	}

	var cache feeapp.ReportCache = feememory.NewReportCache()
	if cfg.RedisAddr != "" {
		redisCache := feeredis.NewReportCache(cfg.RedisAddr)
		defer redisCache.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisCache.Ping(ctx)
		cancel()
		if err != nil {
			logger.Fatalf("redis ping error: %v", err)
		}
		cache = redisCache
	}

	service, err := feeapp.NewReportService(format,
		feeapp.WithRunRepository(runRepo),
		feeapp.WithPublisher(publisher),
		feeapp.WithCache(cache, feeCfg.CacheTTL),
		feeapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("fee report service error: %v", err)
	}
	reportHandler, err := feeinterfaces.NewFeeReportHandler(service, feeCfg, auditLogger, logger)
	if err != nil {
		logger.Fatalf("fee report handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/fee-reports", reportHandler)
	mux.Handle("/api/v1/fee-reports/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("http listening on %s date_format=%s", cfg.HTTPAddr, format)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL    string
	HTTPAddr       string
	RedisAddr      string
	JWTSecret      string
	WebhookURL     string
	WebhookTimeout time.Duration
	PublicBaseURL  string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		RedisAddr:   getenvDefault("REDIS_ADDR", ""),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),

		WebhookURL:     getenvDefault("FEES_WEBHOOK_URL", ""),
		WebhookTimeout: getenvDuration("FEES_WEBHOOK_TIMEOUT", 5*time.Second),
		PublicBaseURL:  getenvDefault("FEES_PUBLIC_BASE_URL", ""),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

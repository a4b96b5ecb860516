package main

import (
	"net/http"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/taxgains/src/config"
	"github.com/username/taxgains/src/database"
	"github.com/username/taxgains/src/handlers"
	"github.com/username/taxgains/src/logger"
	"github.com/username/taxgains/src/processors"
	"github.com/username/taxgains/src/reports"
	"github.com/username/taxgains/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Taxgains backend server starting...")

	if err := os.MkdirAll(config.Cfg.ReportDir, 0o755); err != nil {
		logger.L.Error("Failed to create report directory", "path", config.Cfg.ReportDir, "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(config.Cfg.ReportExpiry, 2*config.Cfg.ReportExpiry)

	logger.L.Info("Initializing services and handlers...")
	reportService := services.NewReportService(
		processors.NewNormalizer(),
		processors.NewSummaryBuilder(config.Cfg.TaxRate),
		reports.NewWriter(config.Cfg.ReportingCurrency),
		config.Cfg.ReportingCurrency,
		config.Cfg.ReportDir,
		reportCache,
		config.Cfg.ReportExpiry,
	)
	reportHandler := handlers.NewReportHandler(reportService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", reportHandler.HandleProcess)
	mux.HandleFunc("GET /api/runs", reportHandler.HandleListRuns)
	mux.HandleFunc("GET /download/", reportHandler.HandleDownload)

	handler := enableCORS(rateLimitMiddleware(mux))

	addr := ":" + config.Cfg.Port
	logger.L.Info("Server listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.L.Error("Server terminated", "error", err)
		os.Exit(1)
	}
}

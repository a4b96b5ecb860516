package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/config"
	"github.com/username/taxgains/src/logger"
	"github.com/username/taxgains/src/services"
	"github.com/username/taxgains/src/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: service,
	}
}

// HandleProcess accepts a multipart form with one or more extracted
// statement texts, an optional year-start average-cost CSV, year-end FX
// rates and an optional target year, runs the pipeline and returns the
// summary, warnings and a download token for the workbook.
func (h *ReportHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	statementHeaders := r.MultipartForm.File["statements"]
	if len(statementHeaders) == 0 {
		utils.SendJSONError(w, "At least one statement file is required. Ensure 'statements' field is used.", http.StatusBadRequest)
		return
	}

	var statements []io.Reader
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, fh := range statementHeaders {
		f, err := fh.Open()
		if err != nil {
			logger.L.Warn("Failed to open uploaded statement", "filename", fh.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Failed to read statement %s", fh.Filename), http.StatusBadRequest)
			return
		}
		closers = append(closers, f)
		statements = append(statements, f)
	}

	input := services.ProcessInput{
		Statements: statements,
		Rates:      parseRates(r),
		TargetYear: parseTargetYear(r.FormValue("target_year")),
	}

	if avgFile, _, err := r.FormFile("avg_costs_csv"); err == nil {
		closers = append(closers, avgFile)
		input.AvgCosts = avgFile
	}

	logger.L.Info("Processing report request", "statements", len(statements), "targetYear", input.TargetYear)
	result, err := h.reportService.ProcessStatements(input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoStatements):
			utils.SendJSONError(w, "No statement period could be detected. Check the statement files.", http.StatusBadRequest)
		case errors.Is(err, services.ErrAmbiguousYear):
			utils.SendJSONError(w, "Statements cover multiple years. Select a target year.", http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			logger.L.Warn("Report processing failed during parsing", "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing statements: %v", err), http.StatusBadRequest)
		case errors.Is(err, services.ErrProcessingFailed):
			logger.L.Error("Report processing failed", "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error processing transactions: %v", err), http.StatusUnprocessableEntity)
		default:
			logger.L.Error("Internal error processing report", "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the statements. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for report result", "error", err)
	}
}

// HandleDownload serves a generated workbook by its token.
func (h *ReportHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/download/")
	if token == "" || strings.Contains(token, "/") {
		utils.SendJSONError(w, "invalid report token", http.StatusBadRequest)
		return
	}

	path, found := h.reportService.ReportPath(token)
	if !found {
		utils.SendJSONError(w, services.ErrReportNotFound.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// HandleListRuns returns past runs, newest first.
func (h *ReportHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.reportService.ListRuns(limit)
	if err != nil {
		logger.L.Error("Error listing report runs", "error", err)
		utils.SendJSONError(w, "Error retrieving run history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		logger.L.Error("Error encoding JSON response for run list", "error", err)
	}
}

// parseRates reads the per-currency year-end rate fields. Unparsable or
// empty fields are skipped; the converter warns later for any currency that
// ends up without a rate.
func parseRates(r *http.Request) map[string]decimal.Decimal {
	fields := map[string]string{
		"USD": "usd_rate",
		"HKD": "hkd_rate",
		"SGD": "sgd_rate",
	}
	rates := make(map[string]decimal.Decimal)
	for currency, field := range fields {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			logger.L.Warn("Skipping invalid rate value", "currency", currency, "value", raw)
			continue
		}
		rates[currency] = rate
	}
	return rates
}

func parseTargetYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

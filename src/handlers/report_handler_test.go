package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/taxgains/src/config"
	"github.com/username/taxgains/src/logger"
	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/services"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{MaxUploadSizeBytes: 20 * 1024 * 1024}
	os.Exit(m.Run())
}

// stubReportService records the input it was given and returns canned
// results.
type stubReportService struct {
	lastInput  services.ProcessInput
	result     *services.RunResult
	err        error
	reportPath string
	runs       []models.ReportRun
}

func (s *stubReportService) ProcessStatements(input services.ProcessInput) (*services.RunResult, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubReportService) ReportPath(token string) (string, bool) {
	if s.reportPath == "" {
		return "", false
	}
	return s.reportPath, true
}

func (s *stubReportService) ListRuns(limit int) ([]models.ReportRun, error) {
	return s.runs, nil
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleProcessPassesInputsThrough(t *testing.T) {
	stub := &stubReportService{result: &services.RunResult{
		Year:        2025,
		Token:       "tok-1",
		SummaryRows: []models.SummaryRow{},
		Warnings:    []models.Warning{},
	}}
	h := NewReportHandler(stub)

	req := multipartRequest(t,
		map[string]string{
			"usd_rate":    "7.1",
			"hkd_rate":    "0.9",
			"sgd_rate":    "",
			"target_year": "2025",
		},
		map[string]string{"statements": "statement text"},
	)
	rec := httptest.NewRecorder()
	h.HandleProcess(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2025, stub.lastInput.TargetYear)
	require.Len(t, stub.lastInput.Statements, 1)
	assert.Nil(t, stub.lastInput.AvgCosts)
	require.Len(t, stub.lastInput.Rates, 2, "blank rate fields are skipped")
	assert.True(t, stub.lastInput.Rates["USD"].Equal(decimal.RequireFromString("7.1")))
	assert.True(t, stub.lastInput.Rates["HKD"].Equal(decimal.RequireFromString("0.9")))

	var body services.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tok-1", body.Token)
	assert.NotNil(t, body.Warnings, "warnings must serialize even when empty")
}

func TestHandleProcessRequiresStatements(t *testing.T) {
	h := NewReportHandler(&stubReportService{})

	req := multipartRequest(t, map[string]string{"usd_rate": "7.1"}, nil)
	rec := httptest.NewRecorder()
	h.HandleProcess(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcessMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no statements", services.ErrNoStatements, http.StatusBadRequest},
		{"ambiguous year", services.ErrAmbiguousYear, http.StatusBadRequest},
		{"parsing failed", services.ErrParsingFailed, http.StatusBadRequest},
		{"processing failed", services.ErrProcessingFailed, http.StatusUnprocessableEntity},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewReportHandler(&stubReportService{err: tc.err})
			req := multipartRequest(t, nil, map[string]string{"statements": "text"})
			rec := httptest.NewRecorder()
			h.HandleProcess(rec, req)

			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleDownloadServesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tax_report_2025_tok.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("workbook bytes"), 0o644))

	h := NewReportHandler(&stubReportService{reportPath: path})

	req := httptest.NewRequest(http.MethodGet, "/download/tok", nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tax_report_2025_tok.xlsx")
	assert.Equal(t, "workbook bytes", rec.Body.String())
}

func TestHandleDownloadUnknownToken(t *testing.T) {
	h := NewReportHandler(&stubReportService{})

	req := httptest.NewRequest(http.MethodGet, "/download/missing", nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDownloadRejectsNestedPaths(t *testing.T) {
	h := NewReportHandler(&stubReportService{reportPath: "/etc/passwd"})

	req := httptest.NewRequest(http.MethodGet, "/download/a/b", nil)
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListRuns(t *testing.T) {
	h := NewReportHandler(&stubReportService{runs: []models.ReportRun{
		{Token: "tok-2", Year: 2025},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	h.HandleListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var runs []models.ReportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "tok-2", runs[0].Token)
}

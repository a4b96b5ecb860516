package services

import (
	"errors"
	"io"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/models"
)

var (
	ErrParsingFailed    = errors.New("statement parsing failed")
	ErrNoStatements     = errors.New("no statement with a recognizable period")
	ErrAmbiguousYear    = errors.New("statements span multiple years; a target year is required")
	ErrProcessingFailed = errors.New("transaction processing failed")
	ErrReportNotFound   = errors.New("report not found or expired")
)

// ProcessInput carries one run's inputs: extracted statement texts, the
// optional year-start average-cost CSV, the year-end FX rates and an
// optional target year (0 means infer from the statements).
type ProcessInput struct {
	Statements []io.Reader
	AvgCosts   io.Reader
	Rates      map[string]decimal.Decimal
	TargetYear int
}

// RunResult is the output of one run: the report rows, every accumulated
// warning (present even when empty), the underlying realized-gain entries,
// the remaining holdings, and the download token of the generated workbook.
type RunResult struct {
	Year          int                   `json:"year"`
	Token         string                `json:"token"`
	SummaryRows   []models.SummaryRow   `json:"summary_rows"`
	Warnings      []models.Warning      `json:"warnings"`
	RealizedGains []models.RealizedGain `json:"realized_gains"`
	OpenLots      []models.OpenLot      `json:"open_lots"`
}

// ReportService defines the core processing pipeline exposed to handlers.
type ReportService interface {
	ProcessStatements(input ProcessInput) (*RunResult, error)
	ReportPath(token string) (string, bool)
	ListRuns(limit int) ([]models.ReportRun, error)
}

package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/taxgains/src/database"
	"github.com/username/taxgains/src/logger"
	"github.com/username/taxgains/src/models"
	"github.com/username/taxgains/src/parsers"
	"github.com/username/taxgains/src/positions"
	"github.com/username/taxgains/src/processors"
	"github.com/username/taxgains/src/reports"
)

type reportServiceImpl struct {
	normalizer        *processors.Normalizer
	summaryBuilder    *processors.SummaryBuilder
	writer            *reports.Writer
	reportingCurrency string
	reportDir         string
	reportCache       *cache.Cache
	reportExpiry      time.Duration
}

func NewReportService(
	normalizer *processors.Normalizer,
	summaryBuilder *processors.SummaryBuilder,
	writer *reports.Writer,
	reportingCurrency string,
	reportDir string,
	reportCache *cache.Cache,
	reportExpiry time.Duration,
) ReportService {
	return &reportServiceImpl{
		normalizer:        normalizer,
		summaryBuilder:    summaryBuilder,
		writer:            writer,
		reportingCurrency: reportingCurrency,
		reportDir:         reportDir,
		reportCache:       reportCache,
		reportExpiry:      reportExpiry,
	}
}

// ProcessStatements runs the full pipeline: parse statements, build opening
// lots, normalize, FIFO-match, convert, summarize, render the workbook.
// All run state (lot queues, warning log) lives in locals, so concurrent
// runs never share anything.
func (s *reportServiceImpl) ProcessStatements(input ProcessInput) (*RunResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessStatements START", "statementCount", len(input.Statements))

	warnings := models.NewWarningLog()

	statements, err := s.parseStatements(input.Statements)
	if err != nil {
		return nil, err
	}

	year, err := resolveYear(statements, input.TargetYear)
	if err != nil {
		return nil, err
	}

	book, err := positions.ParseAvgCostCSV(input.AvgCosts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	rateTable := processors.NewRateTable(s.reportingCurrency)
	for currency, rate := range input.Rates {
		rateTable.Set(currency, rate)
	}

	accounts := groupByAccount(statements)

	var allEntries []models.RealizedGain
	var allOpenLots []models.OpenLot
	for _, acc := range accounts {
		openingLots, fallbackCosts := book.BuildOpeningLots(acc.id, acc.earliestHoldings, warnings)

		txs, err := s.normalizer.Normalize(acc.trades, warnings)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}

		matcher := processors.NewFIFOMatcher(openingLots, fallbackCosts, warnings)
		entries, err := matcher.Process(txs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		allEntries = append(allEntries, filterByYear(entries, year)...)
		allOpenLots = append(allOpenLots, matcher.OpenLots()...)
	}

	converted := rateTable.Convert(allEntries, warnings)
	rows := s.summaryBuilder.Build(converted, costMissingSymbols(warnings))

	token, err := s.renderWorkbook(year, rows, warnings.Entries())
	if err != nil {
		return nil, err
	}

	if database.DB != nil {
		if _, err := database.SaveRun(token, year, rows, warnings.Entries()); err != nil {
			logger.L.Error("Failed to persist report run", "error", err)
		}
	}

	result := &RunResult{
		Year:          year,
		Token:         token,
		SummaryRows:   rows,
		Warnings:      warnings.Entries(),
		RealizedGains: converted,
		OpenLots:      allOpenLots,
	}
	if result.SummaryRows == nil {
		result.SummaryRows = []models.SummaryRow{}
	}
	if result.RealizedGains == nil {
		result.RealizedGains = []models.RealizedGain{}
	}
	if result.OpenLots == nil {
		result.OpenLots = []models.OpenLot{}
	}

	logger.L.Info("ProcessStatements END",
		"year", year, "rows", len(result.SummaryRows),
		"warnings", len(result.Warnings), "duration", time.Since(overallStartTime))
	return result, nil
}

// ReportPath resolves a download token to the generated workbook path.
func (s *reportServiceImpl) ReportPath(token string) (string, bool) {
	if path, found := s.reportCache.Get(token); found {
		return path.(string), true
	}
	return "", false
}

func (s *reportServiceImpl) ListRuns(limit int) ([]models.ReportRun, error) {
	if database.DB == nil {
		return []models.ReportRun{}, nil
	}
	return database.ListRuns(limit)
}

func (s *reportServiceImpl) parseStatements(readers []io.Reader) ([]*models.Statement, error) {
	var statements []*models.Statement
	for i, r := range readers {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading statement %d: %v", ErrParsingFailed, i+1, err)
		}
		text := string(raw)
		source := parsers.DetectSource(text)
		parser, err := parsers.GetParser(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
		}
		st, err := parser.Parse(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("%w: statement %d: %v", ErrParsingFailed, i+1, err)
		}
		logger.L.Debug("Parsed statement", "source", st.Source, "account", st.AccountID,
			"year", st.Year, "month", st.Month, "trades", len(st.Trades), "holdings", len(st.Holdings))
		statements = append(statements, st)
	}
	return statements, nil
}

// resolveYear picks the report year: the explicit target when given,
// otherwise the single year the statements cover.
func resolveYear(statements []*models.Statement, targetYear int) (int, error) {
	years := make(map[int]bool)
	for _, st := range statements {
		if st.Year > 0 {
			years[st.Year] = true
		}
	}
	if len(years) == 0 {
		return 0, ErrNoStatements
	}
	if targetYear > 0 {
		return targetYear, nil
	}
	if len(years) == 1 {
		for y := range years {
			return y, nil
		}
	}
	return 0, ErrAmbiguousYear
}

type accountData struct {
	id               string
	trades           []models.RawTradeRecord
	earliestHoldings []models.StatementHolding
}

// groupByAccount collects each account's trades (statement order preserved)
// and the holdings overview of its earliest statement, which represents the
// year-start position. Accounts come back sorted for determinism.
func groupByAccount(statements []*models.Statement) []*accountData {
	byID := make(map[string]*accountData)
	earliestMonth := make(map[string]int)
	var order []string

	for _, st := range statements {
		acc, ok := byID[st.AccountID]
		if !ok {
			acc = &accountData{id: st.AccountID}
			byID[st.AccountID] = acc
			order = append(order, st.AccountID)
		}
		acc.trades = append(acc.trades, st.Trades...)

		if st.Year == 0 {
			continue
		}
		month := st.Year*100 + st.Month
		if prev, seen := earliestMonth[st.AccountID]; !seen || month < prev {
			earliestMonth[st.AccountID] = month
			acc.earliestHoldings = st.Holdings
		}
	}

	sort.Strings(order)
	accounts := make([]*accountData, 0, len(order))
	for _, id := range order {
		accounts = append(accounts, byID[id])
	}
	return accounts
}

// filterByYear drops realized entries outside the target year. Lots are
// already consumed by then, so cross-year statements still account
// correctly.
func filterByYear(entries []models.RealizedGain, year int) []models.RealizedGain {
	if year <= 0 {
		return entries
	}
	var kept []models.RealizedGain
	for _, entry := range entries {
		if entry.SellDate.Year() == year {
			kept = append(kept, entry)
		}
	}
	return kept
}

// costMissingSymbols derives the set of "account|symbol" keys whose cost
// basis was padded, from the warnings accumulated so far.
func costMissingSymbols(warnings *models.WarningLog) map[string]bool {
	missing := make(map[string]bool)
	for _, w := range warnings.Entries() {
		if w.Category == models.WarnOversell || w.Category == models.WarnMissingCostBasis {
			missing[w.AccountID+"|"+w.Symbol] = true
		}
	}
	return missing
}

func (s *reportServiceImpl) renderWorkbook(year int, rows []models.SummaryRow, warnings []models.Warning) (string, error) {
	token := uuid.NewString()
	path := filepath.Join(s.reportDir, fmt.Sprintf("tax_report_%d_%s.xlsx", year, token))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating report file: %w", err)
	}
	defer f.Close()

	if err := s.writer.Write(f, rows, warnings); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("error writing report workbook: %w", err)
	}

	s.reportCache.Set(token, path, s.reportExpiry)
	return token, nil
}

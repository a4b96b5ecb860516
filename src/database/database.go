package database

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/taxgains/src/logger"
	"github.com/username/taxgains/src/models"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL UNIQUE,
		year INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS run_summary_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		account_id TEXT,
		symbol TEXT NOT NULL,
		name TEXT,
		currency TEXT,
		total_proceeds TEXT,
		total_cost_basis TEXT,
		total_gain TEXT,
		estimated_tax TEXT,
		fx_rate TEXT,
		total_gain_reporting TEXT,
		estimated_tax_reporting TEXT,
		cost_basis_missing BOOLEAN DEFAULT FALSE,
		FOREIGN KEY(run_id) REFERENCES report_runs(id)
	);

	CREATE TABLE IF NOT EXISTS run_warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		account_id TEXT,
		symbol TEXT,
		detail TEXT,
		FOREIGN KEY(run_id) REFERENCES report_runs(id)
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// SaveRun persists one run's summary rows and warnings. Decimal amounts are
// stored as their exact string form.
func SaveRun(token string, year int, rows []models.SummaryRow, warnings []models.Warning) (int64, error) {
	dbTx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.Exec(`INSERT INTO report_runs (token, year) VALUES (?, ?)`, token, year)
	if err != nil {
		return 0, fmt.Errorf("error inserting report run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading run id: %w", err)
	}

	rowStmt, err := dbTx.Prepare(`INSERT INTO run_summary_rows
		(run_id, account_id, symbol, name, currency, total_proceeds, total_cost_basis, total_gain, estimated_tax, fx_rate, total_gain_reporting, estimated_tax_reporting, cost_basis_missing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing summary insert: %w", err)
	}
	defer rowStmt.Close()

	for _, row := range rows {
		_, err := rowStmt.Exec(runID, row.AccountID, row.Symbol, row.Name, row.Currency,
			row.TotalProceeds.String(), row.TotalCostBasis.String(),
			row.TotalGain.String(), row.EstimatedTax.String(),
			decStr(row.FXRate), decStr(row.TotalGainReporting), decStr(row.EstimatedTaxReporting),
			row.CostBasisMissing)
		if err != nil {
			return 0, fmt.Errorf("error inserting summary row for %s: %w", row.Symbol, err)
		}
	}

	warnStmt, err := dbTx.Prepare(`INSERT INTO run_warnings (run_id, category, account_id, symbol, detail) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing warning insert: %w", err)
	}
	defer warnStmt.Close()

	for _, warning := range warnings {
		if _, err := warnStmt.Exec(runID, string(warning.Category), warning.AccountID, warning.Symbol, warning.Detail); err != nil {
			return 0, fmt.Errorf("error inserting warning: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns past runs, newest first.
func ListRuns(limit int) ([]models.ReportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(`
		SELECT r.id, r.token, r.year, r.created_at,
			(SELECT COUNT(*) FROM run_summary_rows s WHERE s.run_id = r.id),
			(SELECT COUNT(*) FROM run_warnings w WHERE w.run_id = r.id)
		FROM report_runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying report runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ReportRun
	for rows.Next() {
		var run models.ReportRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Token, &run.Year, &createdAt, &run.RowCount, &run.WarningCount); err != nil {
			return nil, fmt.Errorf("error scanning report run: %w", err)
		}
		if t, parseErr := time.Parse("2006-01-02 15:04:05", createdAt); parseErr == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report runs: %w", err)
	}
	return runs, nil
}

func decStr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

package models

import "time"

// ReportRun is the persisted record of one processing run.
type ReportRun struct {
	ID           int64     `json:"id"`
	Token        string    `json:"token"`
	Year         int       `json:"year"`
	CreatedAt    time.Time `json:"created_at"`
	RowCount     int       `json:"row_count"`
	WarningCount int       `json:"warning_count"`
}

package match

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// defaultAccuracy is the neutral historical-accuracy ratio used when no
// feedback exists for a rule.
const defaultAccuracy = 0.5

// HistoryProvider supplies the read-only historical-accuracy signal: the
// fraction of a rule's past matches that reviewers confirmed.
type HistoryProvider interface {
	// Accuracy returns a ratio in [0,1], or the neutral default when no
	// feedback is recorded for the rule.
	Accuracy(ruleID string) float64
}

// NoopHistory returns the neutral default for every rule.
type NoopHistory struct{}

// Accuracy implements HistoryProvider.
func (NoopHistory) Accuracy(string) float64 { return defaultAccuracy }

// SQLiteHistory reads rule feedback from a SQLite database opened
// read-only. The engine never writes match history; feedback is recorded by
// external tooling.
//
// Expected schema:
//
//	CREATE TABLE rule_feedback (
//	    rule_id   TEXT PRIMARY KEY,
//	    confirmed INTEGER NOT NULL DEFAULT 0,
//	    rejected  INTEGER NOT NULL DEFAULT 0
//	);
type SQLiteHistory struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenSQLiteHistory opens the feedback database in read-only mode.
func OpenSQLiteHistory(path string, logger *zap.SugaredLogger) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return &SQLiteHistory{db: db, logger: logger}, nil
}

// Accuracy implements HistoryProvider. Any lookup failure degrades to the
// neutral default; a missing row is not an error.
func (h *SQLiteHistory) Accuracy(ruleID string) float64 {
	var confirmed, rejected int64
	err := h.db.QueryRow(
		"SELECT confirmed, rejected FROM rule_feedback WHERE rule_id = ?", ruleID,
	).Scan(&confirmed, &rejected)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && h.logger != nil {
			h.logger.Debugw("History lookup failed", "rule_id", ruleID, "error", err)
		}
		return defaultAccuracy
	}
	total := confirmed + rejected
	if total == 0 {
		return defaultAccuracy
	}
	return float64(confirmed) / float64(total)
}

// Close releases the database handle.
func (h *SQLiteHistory) Close() error { return h.db.Close() }

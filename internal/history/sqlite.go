package history

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/sherifkozman/red-council/internal/campaign"
	"github.com/sherifkozman/red-council/internal/types"
)

// SQLiteDAO implements DAO on a SQLite database. It shares the *sql.DB with
// the rest of the application and owns only its own table.
type SQLiteDAO struct {
	db *sql.DB
}

var _ DAO = (*SQLiteDAO)(nil)

// NewSQLiteDAO creates the history table if needed and returns a DAO over it.
func NewSQLiteDAO(ctx context.Context, db *sql.DB) (*SQLiteDAO, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS campaign_history (
			id                 TEXT PRIMARY KEY,
			session_id         TEXT NOT NULL,
			target             TEXT NOT NULL DEFAULT '',
			model              TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			total_attacks      INTEGER NOT NULL DEFAULT 0,
			successful_attacks INTEGER NOT NULL DEFAULT 0,
			failed_attacks     INTEGER NOT NULL DEFAULT 0,
			duration_seconds   INTEGER NOT NULL DEFAULT 0,
			results            TEXT NOT NULL DEFAULT '[]',
			started_at         TIMESTAMP NOT NULL,
			finished_at        TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_campaign_history_finished_at
			ON campaign_history(finished_at DESC);
		CREATE INDEX IF NOT EXISTS idx_campaign_history_session
			ON campaign_history(session_id)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to create history table", err)
	}
	return &SQLiteDAO{db: db}, nil
}

func (d *SQLiteDAO) Record(ctx context.Context, rec *Record) error {
	if rec.ID.IsZero() {
		rec.ID = types.NewID()
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return types.WrapError(types.HISTORY_WRITE_FAILED, "failed to marshal results", err)
	}

	const query = `
		INSERT INTO campaign_history (
			id, session_id, target, model, status,
			total_attacks, successful_attacks, failed_attacks,
			duration_seconds, results, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = d.db.ExecContext(ctx, query,
		rec.ID.String(), rec.SessionID, rec.Target, rec.Model, string(rec.Status),
		rec.TotalAttacks, rec.SuccessfulAttacks, rec.FailedAttacks,
		rec.DurationSeconds, string(resultsJSON), rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return types.WrapError(types.HISTORY_WRITE_FAILED, "failed to insert history record", err)
	}
	return nil
}

func (d *SQLiteDAO) GetByID(ctx context.Context, id types.ID) (*Record, error) {
	const query = selectColumns + ` WHERE id = ?`
	rec, err := scanRecord(d.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.HISTORY_QUERY_FAILED, "failed to load history record", err)
	}
	return rec, nil
}

func (d *SQLiteDAO) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY finished_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.HISTORY_QUERY_FAILED, "failed to query history", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, types.WrapError(types.HISTORY_QUERY_FAILED, "failed to scan history record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.HISTORY_QUERY_FAILED, "failed to iterate history", err)
	}
	return records, nil
}

func (d *SQLiteDAO) Delete(ctx context.Context, id types.ID) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM campaign_history WHERE id = ?`, id.String())
	if err != nil {
		return types.WrapError(types.HISTORY_WRITE_FAILED, "failed to delete history record", err)
	}
	return nil
}

func (d *SQLiteDAO) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	const query = `
		DELETE FROM campaign_history WHERE id NOT IN (
			SELECT id FROM campaign_history ORDER BY finished_at DESC LIMIT ?
		)`
	res, err := d.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, types.WrapError(types.HISTORY_WRITE_FAILED, "failed to prune history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

const selectColumns = `
	SELECT id, session_id, target, model, status,
		total_attacks, successful_attacks, failed_attacks,
		duration_seconds, results, started_at, finished_at
	FROM campaign_history`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec         Record
		id          string
		status      string
		resultsJSON string
	)
	err := row.Scan(
		&id, &rec.SessionID, &rec.Target, &rec.Model, &status,
		&rec.TotalAttacks, &rec.SuccessfulAttacks, &rec.FailedAttacks,
		&rec.DurationSeconds, &resultsJSON, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ID = types.ID(id)
	rec.Status = campaign.Status(status)
	if resultsJSON != "" {
		if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chart-signal/api/internal/analysis"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// JournalRepo is an append-only audit log of analyses. It is never read back
// to answer a request: every analysis still goes to the model.
type JournalRepo struct{ DB *sql.DB }

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{DB: db} }

// Entry is one journal row.
type Entry struct {
	ID        string
	CreatedAt time.Time
	ChatID    int64
	Source    string // http | telegram | cli
	ImageHash string
	MIME      string
	Engine    string
	Model     string
	Status    string
	Result    *analysis.Result
	Warnings  []string
	Error     string
	Duration  time.Duration
}

const schema = `
create table if not exists signal_analyses (
  id           uuid primary key,
  created_at   timestamptz not null default now(),
  chat_id      bigint,
  source       text not null,
  image_hash   text not null,
  mime         text not null,
  engine       text not null,
  model        text not null,
  status       text not null,
  signal       text,
  signal_type  text,
  confidence   integer,
  pair         text,
  timeframe    text,
  result_json  jsonb,
  warnings     jsonb,
  error        text,
  duration_ms  integer not null
);
create index if not exists signal_analyses_chat_created_idx
  on signal_analyses (chat_id, created_at desc);`

func (r *JournalRepo) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *JournalRepo) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("journal entry without id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var (
		resultJSON []byte
		signal     sql.NullString
		signalType sql.NullString
		confidence sql.NullInt64
		pair       sql.NullString
		timeframe  sql.NullString
	)
	if e.Result != nil {
		js, err := json.Marshal(e.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = js
		signal = sql.NullString{String: string(e.Result.Signal), Valid: true}
		signalType = sql.NullString{String: string(e.Result.SignalType), Valid: true}
		confidence = sql.NullInt64{Int64: int64(e.Result.Confidence), Valid: true}
		pair = sql.NullString{String: e.Result.Pair, Valid: true}
		timeframe = sql.NullString{String: e.Result.Timeframe, Valid: true}
	}
	warnings, _ := json.Marshal(e.Warnings)
	if e.Warnings == nil {
		warnings = []byte("[]")
	}

	const q = `
insert into signal_analyses (
  id, created_at, chat_id, source, image_hash, mime, engine, model, status,
  signal, signal_type, confidence, pair, timeframe,
  result_json, warnings, error, duration_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID, e.CreatedAt, nullInt(e.ChatID), e.Source, e.ImageHash, e.MIME, e.Engine, e.Model, e.Status,
		signal, signalType, confidence, pair, timeframe,
		resultJSON, warnings, nullString(e.Error), e.Duration.Milliseconds(),
	)
	return err
}

// Recent returns the newest entries first. chatID 0 means all chats.
func (r *JournalRepo) Recent(ctx context.Context, chatID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const q = `
select id, created_at,
       coalesce(chat_id,0) as chat_id,
       source, image_hash, mime, engine, model, status,
       result_json, warnings,
       coalesce(error,'') as error,
       duration_ms
from signal_analyses
where ($1::bigint = 0 or chat_id = $1)
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			resultJSON []byte
			warnings   []byte
			durMS      int64
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.ChatID, &e.Source, &e.ImageHash, &e.MIME,
			&e.Engine, &e.Model, &e.Status, &resultJSON, &warnings, &e.Error, &durMS); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		if len(resultJSON) > 0 {
			var res analysis.Result
			if err := json.Unmarshal(resultJSON, &res); err != nil {
				return nil, fmt.Errorf("journal entry %s: decode result_json: %w", e.ID, err)
			}
			e.Result = &res
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &e.Warnings); err != nil {
				return nil, fmt.Errorf("journal entry %s: decode warnings: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries older than olderThan.
func (r *JournalRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from signal_analyses where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

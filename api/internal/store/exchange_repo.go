package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// Exchange is one prompt/response round trip with a generative backend.
type Exchange struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Operation    string    `json:"operation"`
	Engine       string    `json:"engine"`
	Model        string    `json:"model"`
	PromptHash   string    `json:"prompt_hash"`
	Prompt       string    `json:"prompt"`
	Response     string    `json:"response"`
	FallbackUsed bool      `json:"fallback_used"`
	Error        string    `json:"error,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
}

type ExchangeRepo struct{ DB *sql.DB }

func NewExchangeRepo(db *sql.DB) *ExchangeRepo { return &ExchangeRepo{DB: db} }

const schema = `
create table if not exists llm_exchanges (
  id            bigserial primary key,
  created_at    timestamptz not null default now(),
  operation     text not null,
  engine        text not null,
  model         text not null,
  prompt_hash   text not null,
  prompt        text not null,
  response      text not null default '',
  fallback_used boolean not null default false,
  error         text not null default '',
  latency_ms    bigint not null default 0
);
create index if not exists llm_exchanges_created_at_idx on llm_exchanges (created_at desc);
create index if not exists llm_exchanges_prompt_hash_idx on llm_exchanges (prompt_hash);`

func (r *ExchangeRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Record appends an exchange. PromptHash is filled in when empty.
func (r *ExchangeRepo) Record(ctx context.Context, ex Exchange) error {
	if ex.PromptHash == "" {
		ex.PromptHash = PromptHash(ex.Prompt)
	}
	const q = `
insert into llm_exchanges (
  operation, engine, model, prompt_hash, prompt, response, fallback_used, error, latency_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.DB.ExecContext(ctx, q,
		ex.Operation, ex.Engine, ex.Model, ex.PromptHash, ex.Prompt,
		ex.Response, ex.FallbackUsed, ex.Error, ex.LatencyMS,
	)
	return err
}

// Recent returns the newest exchanges first. limit is clamped to 1..200.
func (r *ExchangeRepo) Recent(ctx context.Context, limit int) ([]Exchange, error) {
	limit = clampLimit(limit)
	const q = `
select id, created_at, operation, engine, model, prompt_hash, prompt,
       response, fallback_used, error, latency_ms
from llm_exchanges
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Exchange, 0, limit)
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.CreatedAt, &ex.Operation, &ex.Engine, &ex.Model,
			&ex.PromptHash, &ex.Prompt, &ex.Response, &ex.FallbackUsed, &ex.Error, &ex.LatencyMS); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes old exchanges so the journal does not grow without bound.
func (r *ExchangeRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from llm_exchanges where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func PromptHash(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 50
	case n > 200:
		return 200
	}
	return n
}

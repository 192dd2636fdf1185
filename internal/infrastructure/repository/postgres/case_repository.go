package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

// CaseRepository is the relational case ledger: an auditable mirror of the
// vector-indexed case memory, used for listing and outcome history. Recall
// always goes through the vector store.
type CaseRepository struct {
	db *sql.DB
}

func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CaseRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS case_ledger (
	case_id              TEXT PRIMARY KEY,
	signals              JSONB NOT NULL,
	query_intent         TEXT NOT NULL,
	retrieved_scheme_ids JSONB NOT NULL,
	chosen_scheme_id     TEXT,
	status               TEXT NOT NULL,
	feedback_score       DOUBLE PRECISION,
	notes                TEXT,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
)
`)
	if err != nil {
		return fmt.Errorf("ensure case ledger schema: %w", err)
	}
	return nil
}

func (r *CaseRepository) RecordCase(ctx context.Context, c domain.CaseMemory) error {
	signals, err := json.Marshal(c.Signals)
	if err != nil {
		return fmt.Errorf("marshal case signals: %w", err)
	}
	schemeIDs, err := json.Marshal(c.RetrievedSchemeIDs)
	if err != nil {
		return fmt.Errorf("marshal retrieved scheme ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO case_ledger (case_id, signals, query_intent, retrieved_scheme_ids, chosen_scheme_id, status, feedback_score, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (case_id) DO UPDATE SET
	signals = EXCLUDED.signals,
	query_intent = EXCLUDED.query_intent,
	retrieved_scheme_ids = EXCLUDED.retrieved_scheme_ids,
	chosen_scheme_id = EXCLUDED.chosen_scheme_id,
	status = EXCLUDED.status,
	feedback_score = EXCLUDED.feedback_score,
	notes = EXCLUDED.notes,
	updated_at = EXCLUDED.updated_at
`,
		c.CaseID,
		signals,
		c.QueryIntent,
		schemeIDs,
		nullString(c.ChosenSchemeID),
		string(c.Status),
		nullFloat(c.FeedbackScore),
		nullString(c.Notes),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record case: %w", err)
	}
	return nil
}

// ApplyUpdate mirrors a partial case update; only supplied fields change,
// updated_at always advances.
func (r *CaseRepository) ApplyUpdate(
	ctx context.Context,
	caseID string,
	update domain.CaseUpdate,
	updatedAt time.Time,
) error {
	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Status != nil {
		appendSet("status", string(*update.Status))
	}
	if update.FeedbackScore != nil {
		appendSet("feedback_score", *update.FeedbackScore)
	}
	if update.Notes != nil {
		appendSet("notes", *update.Notes)
	}
	if update.ChosenSchemeID != nil {
		appendSet("chosen_scheme_id", *update.ChosenSchemeID)
	}

	args = append(args, caseID)
	query := fmt.Sprintf("UPDATE case_ledger SET %s WHERE case_id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply case update: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.WrapError(domain.ErrCaseNotFound, "apply case update", fmt.Errorf("case %s not in ledger", caseID))
	}
	return nil
}

func (r *CaseRepository) ListRecent(ctx context.Context, limit int) ([]domain.CaseMemory, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT case_id, signals, query_intent, retrieved_scheme_ids, chosen_scheme_id, status, feedback_score, notes, created_at, updated_at
FROM case_ledger
ORDER BY updated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent cases: %w", err)
	}
	defer rows.Close()

	var out []domain.CaseMemory
	for rows.Next() {
		var (
			c          domain.CaseMemory
			signals    []byte
			schemeIDs  []byte
			chosen     sql.NullString
			status     string
			feedback   sql.NullFloat64
			notes      sql.NullString
			createdAt  time.Time
			updatedAt  time.Time
		)
		if err := rows.Scan(&c.CaseID, &signals, &c.QueryIntent, &schemeIDs, &chosen, &status, &feedback, &notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan case row: %w", err)
		}
		if err := json.Unmarshal(signals, &c.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal case signals: %w", err)
		}
		if err := json.Unmarshal(schemeIDs, &c.RetrievedSchemeIDs); err != nil {
			return nil, fmt.Errorf("unmarshal retrieved scheme ids: %w", err)
		}
		c.ChosenSchemeID = chosen.String
		c.Status = domain.CaseStatus(status)
		if feedback.Valid {
			score := feedback.Float64
			c.FeedbackScore = &score
		}
		c.Notes = notes.String
		c.CreatedAt = createdAt
		c.UpdatedAt = updatedAt
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case rows: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

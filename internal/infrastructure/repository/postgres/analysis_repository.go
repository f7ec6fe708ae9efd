package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082302)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS panel_analyses (
	id TEXT PRIMARY KEY,
	panel_id TEXT NOT NULL,
	classification JSONB NOT NULL,
	query TEXT NOT NULL,
	context TEXT NOT NULL,
	context_sources INTEGER NOT NULL DEFAULT 0,
	recommendation TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_panel_analyses_panel ON panel_analyses(panel_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	classificationJSON, err := json.Marshal(record.Classification)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO panel_analyses (id, panel_id, classification, query, context, context_sources, recommendation, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		record.ID, record.PanelID, classificationJSON, record.Query, record.Context,
		record.ContextSources, record.Recommendation, string(record.Status), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, panel_id, classification, query, context, context_sources, recommendation, status, created_at
FROM panel_analyses
WHERE id = $1
`, id)

	record, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("analysis %s", id))
		}
		return nil, err
	}
	return record, nil
}

// LatestByPanel returns the most recent analysis per panel.
func (r *AnalysisRepository) LatestByPanel(ctx context.Context) ([]domain.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT ON (panel_id)
	id, panel_id, classification, query, context, context_sources, recommendation, status, created_at
FROM panel_analyses
ORDER BY panel_id, created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("query latest analyses: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisRecord
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.AnalysisRecord, error) {
	var (
		record            domain.AnalysisRecord
		classificationRaw []byte
		status            string
	)
	err := row.Scan(
		&record.ID, &record.PanelID, &classificationRaw, &record.Query, &record.Context,
		&record.ContextSources, &record.Recommendation, &status, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(classificationRaw, &record.Classification); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	record.Status = domain.AnalysisStatus(status)
	return &record, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

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

type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

func (r *ReadingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS panel_readings (
	id TEXT PRIMARY KEY,
	panel_id TEXT NOT NULL,
	power_w DOUBLE PRECISION NOT NULL,
	temperature_c DOUBLE PRECISION NOT NULL,
	irradiance_wm2 DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_panel_readings_panel ON panel_readings(panel_id, recorded_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReadingRepository) SaveReading(ctx context.Context, reading *domain.PanelReading) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO panel_readings (id, panel_id, power_w, temperature_c, irradiance_wm2, recorded_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		reading.ID, reading.PanelID, reading.PowerW, reading.Temperature, reading.Irradiance, reading.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *ReadingRepository) StatsByPanel(ctx context.Context) ([]domain.ReadingStats, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT panel_id,
	COUNT(*) AS samples,
	AVG(power_w) AS avg_power_w,
	MAX(temperature_c) AS max_temperature_c,
	AVG(irradiance_wm2) AS avg_irradiance_wm2,
	MAX(recorded_at) AS last_recorded_at
FROM panel_readings
GROUP BY panel_id
ORDER BY panel_id
`)
	if err != nil {
		return nil, fmt.Errorf("query reading stats: %w", err)
	}
	defer rows.Close()

	var out []domain.ReadingStats
	for rows.Next() {
		var stats domain.ReadingStats
		if err := rows.Scan(
			&stats.PanelID, &stats.Samples, &stats.AvgPowerW,
			&stats.MaxTemperature, &stats.AvgIrradiance, &stats.LastRecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reading stats: %w", err)
		}
		out = append(out, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading stats: %w", err)
	}
	return out, nil
}

// Package postgres persists location estimates with sqlx over lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS location_estimates (
		request_id       TEXT PRIMARY KEY,
		place_name       TEXT NOT NULL DEFAULT '',
		geo_source       TEXT NOT NULL DEFAULT '',
		area_source      TEXT NOT NULL,
		junction_source  TEXT NOT NULL,
		vision_provider  TEXT NOT NULL DEFAULT '',
		monthly_revenue  DOUBLE PRECISION NOT NULL,
		location_score   DOUBLE PRECISION NOT NULL,
		risk_score       DOUBLE PRECISION NOT NULL,
		confidence_level TEXT NOT NULL,
		metrics          JSONB NOT NULL,
		computed_at      TIMESTAMPTZ NOT NULL
	)`

const upsert = `
	INSERT INTO location_estimates (
		request_id, place_name, geo_source, area_source, junction_source,
		vision_provider, monthly_revenue, location_score, risk_score,
		confidence_level, metrics, computed_at
	) VALUES (
		:request_id, :place_name, :geo_source, :area_source, :junction_source,
		:vision_provider, :monthly_revenue, :location_score, :risk_score,
		:confidence_level, :metrics, :computed_at
	)
	ON CONFLICT (request_id) DO UPDATE SET
		place_name       = EXCLUDED.place_name,
		geo_source       = EXCLUDED.geo_source,
		area_source      = EXCLUDED.area_source,
		junction_source  = EXCLUDED.junction_source,
		vision_provider  = EXCLUDED.vision_provider,
		monthly_revenue  = EXCLUDED.monthly_revenue,
		location_score   = EXCLUDED.location_score,
		risk_score       = EXCLUDED.risk_score,
		confidence_level = EXCLUDED.confidence_level,
		metrics          = EXCLUDED.metrics,
		computed_at      = EXCLUDED.computed_at`

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Recorder stores estimates in the location_estimates table.
type Recorder struct {
	db *sqlx.DB
}

// NewRecorder creates a Recorder.
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// EnsureSchema creates the estimates table if it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadBatch upserts estimates in one transaction, so redelivered requests
// overwrite their earlier row.
func (r *Recorder) LoadBatch(ctx context.Context, estimates []domain.LocationEstimate) error {
	if len(estimates) == 0 {
		return nil
	}

	rows := make([]estimateRow, 0, len(estimates))
	for _, e := range estimates {
		row, err := toRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
			return fmt.Errorf("upsert estimate %s: %w", row.RequestID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit estimates: %w", err)
	}
	return nil
}

// Get returns a stored estimate by request ID, or domain.ErrNotFound.
func (r *Recorder) Get(ctx context.Context, requestID string) (domain.LocationEstimate, error) {
	const query = `
		SELECT request_id, place_name, geo_source, area_source, junction_source,
			vision_provider, monthly_revenue, location_score, risk_score,
			confidence_level, metrics, computed_at
		FROM location_estimates
		WHERE request_id = $1`

	var row estimateRow
	if err := r.db.GetContext(ctx, &row, query, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LocationEstimate{}, domain.ErrNotFound
		}
		return domain.LocationEstimate{}, fmt.Errorf("get estimate %s: %w", requestID, err)
	}
	return fromRow(row)
}

// CheckReadiness reports whether the database is reachable.
func (r *Recorder) CheckReadiness(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	return nil
}

type estimateRow struct {
	RequestID       string    `db:"request_id"`
	PlaceName       string    `db:"place_name"`
	GeoSource       string    `db:"geo_source"`
	AreaSource      string    `db:"area_source"`
	JunctionSource  string    `db:"junction_source"`
	VisionProvider  string    `db:"vision_provider"`
	MonthlyRevenue  float64   `db:"monthly_revenue"`
	LocationScore   float64   `db:"location_score"`
	RiskScore       float64   `db:"risk_score"`
	ConfidenceLevel string    `db:"confidence_level"`
	Metrics         []byte    `db:"metrics"`
	ComputedAt      time.Time `db:"computed_at"`
}

func toRow(e domain.LocationEstimate) (estimateRow, error) {
	metrics, err := json.Marshal(e.Metrics)
	if err != nil {
		return estimateRow{}, fmt.Errorf("marshal metrics for %s: %w", e.RequestID, err)
	}
	return estimateRow{
		RequestID:       e.RequestID,
		PlaceName:       e.PlaceName,
		GeoSource:       e.GeoSource,
		AreaSource:      e.AreaSource,
		JunctionSource:  e.JunctionSource,
		VisionProvider:  e.VisionProvider,
		MonthlyRevenue:  e.Metrics.MonthlyRevenue,
		LocationScore:   e.Metrics.LocationScore,
		RiskScore:       e.Metrics.RiskScore,
		ConfidenceLevel: string(e.Metrics.ConfidenceLevel),
		Metrics:         metrics,
		ComputedAt:      e.ComputedAt,
	}, nil
}

func fromRow(row estimateRow) (domain.LocationEstimate, error) {
	var m domain.MetricsResult
	if err := json.Unmarshal(row.Metrics, &m); err != nil {
		return domain.LocationEstimate{}, fmt.Errorf("unmarshal metrics for %s: %w", row.RequestID, err)
	}
	return domain.LocationEstimate{
		RequestID:      row.RequestID,
		PlaceName:      row.PlaceName,
		GeoSource:      row.GeoSource,
		AreaSource:     row.AreaSource,
		JunctionSource: row.JunctionSource,
		VisionProvider: row.VisionProvider,
		Metrics:        m,
		ComputedAt:     row.ComputedAt.UTC(),
	}, nil
}

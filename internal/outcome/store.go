package outcome

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"forex-signal-engine/internal/model"
)

// Tracker records realized signal outcomes and serves the confluence
// weight table. The weight values themselves stay at their configured
// defaults; the tracker accumulates the hit-rate data a future adaptation
// rule would consume.
type Tracker interface {
	RecordOutcome(ctx context.Context, signalID string, outcome model.SignalOutcome) error
	CurrentWeights(ctx context.Context) (map[model.Timeframe]float64, error)
}

// MemoryTracker is the in-process default when no database is configured
type MemoryTracker struct {
	mu       sync.RWMutex
	weights  map[model.Timeframe]float64
	outcomes map[string]model.SignalOutcome
}

// NewMemoryTracker creates a tracker seeded with the fixed weight table
func NewMemoryTracker(weights map[model.Timeframe]float64) *MemoryTracker {
	copied := make(map[model.Timeframe]float64, len(weights))
	for tf, w := range weights {
		copied[tf] = w
	}
	return &MemoryTracker{
		weights:  copied,
		outcomes: make(map[string]model.SignalOutcome),
	}
}

// RecordOutcome stores the realized outcome for a signal
func (t *MemoryTracker) RecordOutcome(_ context.Context, signalID string, outcome model.SignalOutcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes[signalID] = outcome
	return nil
}

// CurrentWeights returns a copy of the weight table
func (t *MemoryTracker) CurrentWeights(_ context.Context) (map[model.Timeframe]float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	copied := make(map[model.Timeframe]float64, len(t.weights))
	for tf, w := range t.weights {
		copied[tf] = w
	}
	return copied, nil
}

// Outcomes returns the recorded outcome per signal ID
func (t *MemoryTracker) Outcomes() map[string]model.SignalOutcome {
	t.mu.RLock()
	defer t.mu.RUnlock()
	copied := make(map[string]model.SignalOutcome, len(t.outcomes))
	for id, outcome := range t.outcomes {
		copied[id] = outcome
	}
	return copied
}

// Store is a PostgreSQL-backed tracker
type Store struct {
	db      *sql.DB
	weights map[model.Timeframe]float64
}

// NewStore opens a PostgreSQL connection, creates the schema, and seeds
// the fixed weight table
func NewStore(dsn string, weights map[model.Timeframe]float64) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	copied := make(map[model.Timeframe]float64, len(weights))
	for tf, w := range weights {
		copied[tf] = w
	}

	return &Store{db: db, weights: copied}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_outcomes (
			signal_id TEXT PRIMARY KEY,
			outcome TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS timeframe_weights (
			timeframe TEXT PRIMARY KEY,
			weight DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// RecordOutcome upserts the realized outcome for a signal
func (s *Store) RecordOutcome(ctx context.Context, signalID string, outcome model.SignalOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_outcomes (signal_id, outcome, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (signal_id) DO UPDATE SET outcome = $2, recorded_at = $3
	`, signalID, string(outcome), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", signalID, err)
	}
	return nil
}

// CurrentWeights returns persisted weights, falling back to the configured
// table for timeframes never written
func (s *Store) CurrentWeights(ctx context.Context) (map[model.Timeframe]float64, error) {
	weights := make(map[model.Timeframe]float64, len(s.weights))
	for tf, w := range s.weights {
		weights[tf] = w
	}

	rows, err := s.db.QueryContext(ctx, `SELECT timeframe, weight FROM timeframe_weights`)
	if err != nil {
		return nil, fmt.Errorf("querying weights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tf string
		var weight float64
		if err := rows.Scan(&tf, &weight); err != nil {
			return nil, fmt.Errorf("scanning weight row: %w", err)
		}
		weights[model.Timeframe(tf)] = weight
	}

	return weights, rows.Err()
}

// HitRate reports the fraction of recorded outcomes that reached take
// profit, and the total count
func (s *Store) HitRate(ctx context.Context) (float64, int, error) {
	var wins, total int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE outcome = $1),
			COUNT(*)
		FROM signal_outcomes
	`, string(model.OutcomeHitTakeProfit)).Scan(&wins, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("querying hit rate: %w", err)
	}

	if total == 0 {
		return 0, 0, nil
	}
	return float64(wins) / float64(total), total, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

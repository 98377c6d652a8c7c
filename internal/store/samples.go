package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InsertSamples stores a batch of synthetic samples atomically.
func (s *Store) InsertSamples(ctx context.Context, samples []SyntheticSample) error {
	if len(samples) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO synthetic_samples (source, duration, category, efficiency, created_at, raw_data)
			VALUES (?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare sample insert: %w", err)
		}
		defer stmt.Close()

		for i := range samples {
			sm := &samples[i]
			if sm.CreatedAt.IsZero() {
				sm.CreatedAt = s.now()
			}
			if sm.RawData == "" {
				sm.RawData = "{}"
			}
			if _, err := stmt.ExecContext(ctx,
				sm.Source, sm.Duration, sm.Category, sm.Efficiency, sm.CreatedAt.UTC(), sm.RawData); err != nil {
				return fmt.Errorf("insert sample from %s: %w", sm.Source, err)
			}
		}
		return nil
	})
}

// SampleStats returns count and means over every stored sample. Means are
// zero when there are no samples.
func (s *Store) SampleStats(ctx context.Context) (SampleStats, error) {
	var st SampleStats
	if err := s.db.GetContext(ctx, &st, `
		SELECT COUNT(*) AS n,
		       COALESCE(AVG(duration), 0) AS avg_duration,
		       COALESCE(AVG(efficiency), 0) AS avg_efficiency
		FROM synthetic_samples`); err != nil {
		return SampleStats{}, fmt.Errorf("sample stats: %w", err)
	}
	return st, nil
}

// ListSamples returns the most recent samples, newest first.
func (s *Store) ListSamples(ctx context.Context, limit int) ([]SyntheticSample, error) {
	samples := []SyntheticSample{}
	if err := s.db.SelectContext(ctx, &samples, s.db.Rebind(`
		SELECT id, source, duration, category, efficiency, created_at, raw_data
		FROM synthetic_samples
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), limit); err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return samples, nil
}

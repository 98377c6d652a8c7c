package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateRecommendation appends a snapshot. CreatedAt defaults to now.
func (s *Store) CreateRecommendation(ctx context.Context, r *Recommendation) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()

	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO recommendations (recommended_duration, confidence, model_version, created_at, user_data)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		r.RecommendedDuration, r.Confidence, r.ModelVersion, r.CreatedAt, r.UserData,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// LatestRecommendation returns the newest snapshot or ErrNotFound.
func (s *Store) LatestRecommendation(ctx context.Context) (*Recommendation, error) {
	var r Recommendation
	err := s.db.GetContext(ctx, &r, `
		SELECT id, recommended_duration, confidence, model_version, created_at, user_data
		FROM recommendations
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest recommendation: %w", err)
	}
	return &r, nil
}

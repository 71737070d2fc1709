package database

import (
	"context"
	"fmt"
	"time"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// insertActivity appends an audit row. An empty action records nothing.
func insertActivity(ctx context.Context, db execer, userId string, audit store.Audit) error {
	if audit.Action == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, queryInsertActivity,
		uuid.New().String(), userId, audit.Action, audit.Details, audit.IpAddress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (s *Service) RecordActivity(ctx context.Context, userId string, audit store.Audit) error {
	return insertActivity(ctx, s.db, userId, audit)
}

func (s *Service) ListActivities(ctx context.Context, userId string, limit int) ([]models.Activity, error) {
	zap.L().Debug("Listing activities", zap.String("user_id", userId), zap.Int("limit", limit))

	rows, err := s.db.QueryContext(ctx, queryListActivities, userId, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("unable to query activities: %w", err)
	}
	defer closeRows(rows)

	var activities []models.Activity
	for rows.Next() {
		var activity models.Activity
		if err := rows.Scan(&activity.Id, &activity.UserId, &activity.Action, &activity.Details,
			&activity.IpAddress, &activity.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan activity row: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return activities, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit"
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

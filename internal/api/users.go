package api

import (
	"context"

	"cryptolab-go/internal/models"
)

// ListUsers returns every account, newest first
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	if _, err := admin(ctx); err != nil {
		return nil, err
	}
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

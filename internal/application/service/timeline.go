package service

import (
	"context"
	"fmt"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

// Timeline is the status history of an application with time spent per status
type Timeline struct {
	Application *entity.Application          `json:"application"`
	History     []*entity.StatusHistoryEntry `json:"history"`
	Durations   []entity.StatusDuration      `json:"durations"`
}

// Timeline returns the append-only history of an application
func (s *lifecycleServiceImpl) Timeline(ctx context.Context, applicationID int64) (*Timeline, error) {
	app, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	history, err := s.History.ListBySubject(ctx, entity.SubjectApplication, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return &Timeline{
		Application: app,
		History:     history,
		Durations:   entity.StatusDurations(history, s.Clock()),
	}, nil
}

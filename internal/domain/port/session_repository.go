package port

import (
	"context"

	"surface-tracker/internal/domain/entity"
)

// TrackingSession одна сессия трекинга: опорное наблюдение и сопоставление кадров с ним.
type TrackingSession interface {
	ID() string
	State() entity.SessionState
	Info() entity.SessionInfo
	Initialize(frame entity.Frame, region entity.Region) (int, error)
	Track(frame entity.Frame) entity.TrackResult
}

// SessionRepository интерфейс хранилища сессий трекинга
type SessionRepository interface {
	// Get возвращает сессию по ID или entity.ErrSessionNotFound
	Get(ctx context.Context, id string) (TrackingSession, error)

	// Save сохраняет сессию, заменяя сессию с тем же ID
	Save(ctx context.Context, session TrackingSession) error

	// List возвращает все сессии, отсортированные по ID
	List(ctx context.Context) ([]TrackingSession, error)
}

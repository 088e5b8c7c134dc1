package port

import (
	"context"

	"surface-tracker/internal/domain/entity"
)

// EventJournal диагностический журнал Initialize/Track
type EventJournal interface {
	// Record сохраняет событие
	Record(ctx context.Context, event entity.TrackingEvent) error

	// Recent возвращает последние события сессии, новые первыми.
	// Пустой sessionID означает все сессии.
	Recent(ctx context.Context, sessionID string, limit int) ([]entity.TrackingEvent, error)
}

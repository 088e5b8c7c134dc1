package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// DefaultSessionID сессия, которую используют клиенты без явного идентификатора.
const DefaultSessionID = "default"

// ErrSessionNotFound сессии с таким идентификатором нет.
var ErrSessionNotFound = entity.ErrSessionNotFound

// TrackingService управляет сессиями трекинга и пишет диагностический журнал.
type TrackingService struct {
	sessions  port.SessionRepository
	extractor port.FeatureExtractor
	overlay   port.OverlayRenderer
	journal   port.EventJournal
	log       *slog.Logger

	fallbackLog rate.Sometimes
}

// NewTrackingService создаёт сервис и заводит пустую сессию по умолчанию.
func NewTrackingService(sessions port.SessionRepository, extractor port.FeatureExtractor, overlay port.OverlayRenderer, journal port.EventJournal, log *slog.Logger) *TrackingService {
	if log == nil {
		log = slog.Default()
	}
	s := &TrackingService{
		sessions:    sessions,
		extractor:   extractor,
		overlay:     overlay,
		journal:     journal,
		log:         log,
		fallbackLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	ctx := context.Background()
	if _, err := sessions.Get(ctx, DefaultSessionID); err != nil {
		if err := sessions.Save(ctx, NewTrackingSession(DefaultSessionID, extractor)); err != nil {
			log.Error("save default session failed", "err", err)
		}
	}
	return s
}

// CreateSession заводит новую сессию со случайным идентификатором.
func (s *TrackingService) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.sessions.Save(ctx, NewTrackingSession(id, s.extractor)); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	s.log.Info("session created", "session", id)
	return id, nil
}

// session возвращает существующую сессию; пустой id означает сессию по умолчанию.
func (s *TrackingService) session(ctx context.Context, id string) (port.TrackingSession, error) {
	if id == "" {
		id = DefaultSessionID
	}
	return s.sessions.Get(ctx, id)
}

// Initialize задаёт опорное наблюдение сессии и возвращает число особых точек.
// Новая сессия попадает в хранилище только после успешного Initialize.
func (s *TrackingService) Initialize(ctx context.Context, sessionID string, frame entity.Frame, region entity.Region) (int, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	created := false
	switch {
	case errors.Is(err, ErrSessionNotFound):
		sess, created = NewTrackingSession(sessionID, s.extractor), true
	case err != nil:
		return 0, err
	}

	count, err := sess.Initialize(frame, region)
	if err != nil {
		s.log.Warn("initialize failed", "session", sessionID, "err", err)
		return 0, err
	}
	if created {
		if err := s.sessions.Save(ctx, sess); err != nil {
			return 0, fmt.Errorf("save session: %w", err)
		}
	}

	s.log.Info("tracking initialized", "session", sess.ID(), "keypoints", count,
		"width", frame.Width, "height", frame.Height, "vertices", len(region))
	s.record(ctx, entity.TrackingEvent{
		SessionID:         sess.ID(),
		Kind:              entity.EventInitialize,
		Status:            string(entity.SessionTracking),
		ReferenceFeatures: count,
		Homography:        entity.Identity(),
	})
	return count, nil
}

// Track сопоставляет кадр с опорой сессии. Результат всегда содержит валидную гомографию.
// Ошибка возвращается только для неизвестной сессии.
func (s *TrackingService) Track(ctx context.Context, sessionID string, frame entity.Frame) (entity.TrackResult, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return entity.NoPose(entity.StatusUninitialized), err
	}

	result := sess.Track(frame)

	switch {
	case result.Status == entity.StatusFault:
		s.log.Error("track fault", "session", sess.ID(), "note", result.Note)
	case !result.HasPose():
		s.fallbackLog.Do(func() {
			s.log.Info("track fell back to identity", "session", sess.ID(), "status", result.Status,
				"reference", result.ReferenceFeatures, "current", result.CurrentFeatures, "matches", result.Matches)
		})
	default:
		s.log.Debug("tracked", "session", sess.ID(), "matches", result.Matches, "inliers", result.Inliers)
	}

	s.record(ctx, entity.TrackingEvent{
		SessionID:         sess.ID(),
		Kind:              entity.EventTrack,
		Status:            string(result.Status),
		ReferenceFeatures: result.ReferenceFeatures,
		CurrentFeatures:   result.CurrentFeatures,
		Matches:           result.Matches,
		Inliers:           result.Inliers,
		Homography:        result.Homography,
		Note:              result.Note,
	})
	return result, nil
}

// Info снимок сессии.
func (s *TrackingService) Info(ctx context.Context, sessionID string) (entity.SessionInfo, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return entity.SessionInfo{}, err
	}
	return sess.Info(), nil
}

// Sessions снимки всех сессий, отсортированные по идентификатору.
func (s *TrackingService) Sessions(ctx context.Context) ([]entity.SessionInfo, error) {
	list, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]entity.SessionInfo, len(list))
	for i, sess := range list {
		infos[i] = sess.Info()
	}
	return infos, nil
}

// Overlay рисует регион сессии, перенесённый гомографией, поверх кадра.
func (s *TrackingService) Overlay(ctx context.Context, sessionID string, frame entity.Frame, h entity.Homography) (entity.Frame, error) {
	if s.overlay == nil {
		return entity.Frame{}, errors.New("overlay renderer is not configured")
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return entity.Frame{}, err
	}
	info := sess.Info()
	if info.State != entity.SessionTracking {
		return entity.Frame{}, fmt.Errorf("session %s is not tracking", sess.ID())
	}
	return s.overlay.DrawRegion(frame, info.Region.Transform(h))
}

// Events последние события журнала.
func (s *TrackingService) Events(ctx context.Context, sessionID string, limit int) ([]entity.TrackingEvent, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, sessionID, limit)
}

// record пишет событие в журнал; сбой журнала не влияет на трекинг.
func (s *TrackingService) record(ctx context.Context, event entity.TrackingEvent) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, event); err != nil {
		s.log.Warn("journal write failed", "session", event.SessionID, "err", err)
	}
}

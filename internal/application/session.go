package app

import (
	"fmt"
	"sync"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
	"surface-tracker/internal/infrastructure/vision"
)

// reference опорное наблюдение. Заменяется целиком, по частям не меняется.
type reference struct {
	set    entity.DescriptorSet
	points []entity.Point
	width  int
	height int
	region entity.Region
}

// TrackingSession хранит одно опорное наблюдение и сопоставляет с ним кадры.
// Initialize и Track взаимно исключаются мьютексом сессии.
type TrackingSession struct {
	id        string
	extractor port.FeatureExtractor

	mu  sync.Mutex
	ref *reference
}

// NewTrackingSession создаёт пустую сессию в состоянии Uninitialized.
func NewTrackingSession(id string, extractor port.FeatureExtractor) *TrackingSession {
	return &TrackingSession{id: id, extractor: extractor}
}

// ID идентификатор сессии.
func (s *TrackingSession) ID() string {
	return s.id
}

// State текущее состояние сессии.
func (s *TrackingSession) State() entity.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref == nil {
		return entity.SessionUninitialized
	}
	return entity.SessionTracking
}

// Info возвращает согласованный снимок сессии.
func (s *TrackingSession) Info() entity.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := entity.SessionInfo{ID: s.id, State: entity.SessionUninitialized}
	if s.ref == nil {
		return info
	}
	info.State = entity.SessionTracking
	info.ReferenceFeatures = s.ref.set.Len()
	info.FrameWidth = s.ref.width
	info.FrameHeight = s.ref.height
	info.Region = append(entity.Region(nil), s.ref.region...)
	return info
}

// Initialize извлекает особые точки внутри региона и заменяет опору целиком.
// Ноль найденных точек не ошибка: сессия всё равно переходит в Tracking.
// При ошибке входных данных или экстрактора прежняя опора остаётся нетронутой.
func (s *TrackingSession) Initialize(frame entity.Frame, region entity.Region) (int, error) {
	if err := frame.Validate(); err != nil {
		return 0, err
	}
	if err := region.Validate(); err != nil {
		return 0, err
	}

	mask := vision.RasterizeRegion(region, frame.Width, frame.Height)

	set, err := s.extractor.Extract(frame, mask)
	if err != nil {
		return 0, fmt.Errorf("extract reference features: %w", err)
	}

	points := make([]entity.Point, set.Len())
	for i := range points {
		points[i] = set.Point(i)
	}
	next := &reference{
		set:    set,
		points: points,
		width:  frame.Width,
		height: frame.Height,
		region: append(entity.Region(nil), region...),
	}

	s.mu.Lock()
	s.ref = next
	s.mu.Unlock()

	return set.Len(), nil
}

// Track сопоставляет кадр с опорой. Всегда возвращает валидную гомографию:
// при нехватке данных, вырожденной геометрии или внутреннем сбое это единичная матрица.
func (s *TrackingSession) Track(frame entity.Frame) (result entity.TrackResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			result = entity.NoPose(entity.StatusFault)
			result.Note = fmt.Sprintf("panic during track: %v", r)
		}
	}()

	if s.ref == nil {
		return entity.NoPose(entity.StatusUninitialized)
	}

	result = entity.NoPose(entity.StatusInsufficientReference)
	result.ReferenceFeatures = s.ref.set.Len()
	if s.ref.set.Len() < vision.MinCorrespondences {
		return result
	}

	if err := frame.Validate(); err != nil {
		result.Status = entity.StatusInvalidFrame
		result.Note = err.Error()
		return result
	}

	current, err := s.extractor.Extract(frame, nil)
	if err != nil {
		result.Status = entity.StatusFault
		result.Note = fmt.Sprintf("extract current features: %v", err)
		return result
	}
	result.CurrentFeatures = current.Len()
	if current.Len() < vision.MinCorrespondences {
		result.Status = entity.StatusInsufficientCurrent
		return result
	}

	accepted := vision.RatioFilter(vision.MatchTopTwo(s.ref.set, current))
	result.Matches = len(accepted)
	if len(accepted) < vision.MinCorrespondences {
		result.Status = entity.StatusInsufficientMatches
		return result
	}

	src := make([]entity.Point, len(accepted))
	dst := make([]entity.Point, len(accepted))
	for i, c := range accepted {
		src[i] = s.ref.points[c.ReferenceIndex]
		dst[i] = current.Point(c.CurrentIndex)
	}

	est, err := vision.EstimateHomography(src, dst)
	if err != nil {
		result.Status = entity.StatusEstimationFailed
		result.Note = err.Error()
		return result
	}

	result.Status = entity.StatusTracked
	result.Homography = est.Homography
	result.Inliers = len(est.Inliers)
	return result
}

var _ port.TrackingSession = (*TrackingSession)(nil)

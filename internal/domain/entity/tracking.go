package entity

import (
	"errors"
	"time"
)

// ErrSessionNotFound сессии с таким идентификатором нет.
var ErrSessionNotFound = errors.New("session not found")

// SessionState состояние сессии трекинга
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized" // Опорного наблюдения ещё нет
	SessionTracking      SessionState = "tracking"      // Опорное наблюдение записано
)

// TrackStatus итог обработки одного кадра
type TrackStatus string

const (
	StatusTracked               TrackStatus = "tracked"                // Гомография найдена
	StatusUninitialized         TrackStatus = "uninitialized"          // Initialize ещё не вызывался
	StatusInsufficientReference TrackStatus = "insufficient_reference" // В опоре меньше 4 точек
	StatusInsufficientCurrent   TrackStatus = "insufficient_current"   // В кадре меньше 4 точек
	StatusInsufficientMatches   TrackStatus = "insufficient_matches"   // После ratio-теста меньше 4 пар
	StatusEstimationFailed      TrackStatus = "estimation_failed"      // RANSAC не нашёл модель
	StatusInvalidFrame          TrackStatus = "invalid_frame"          // Кадр повреждён
	StatusFault                 TrackStatus = "fault"                  // Внутренний сбой
)

// TrackResult результат Track. Homography всегда валидна: без позы это единичная матрица.
type TrackResult struct {
	Status            TrackStatus
	Homography        Homography
	ReferenceFeatures int
	CurrentFeatures   int
	Matches           int
	Inliers           int
	Note              string
}

// NoPose строит результат без позы с единичной гомографией.
func NoPose(status TrackStatus) TrackResult {
	return TrackResult{
		Status:     status,
		Homography: Identity(),
	}
}

// HasPose true, только если гомография действительно оценена.
func (r TrackResult) HasPose() bool {
	return r.Status == StatusTracked
}

// Pose возвращает гомографию и признак её наличия.
func (r TrackResult) Pose() (Homography, bool) {
	if !r.HasPose() {
		return Identity(), false
	}
	return r.Homography, true
}

// EventKind тип записи журнала
type EventKind string

const (
	EventInitialize EventKind = "initialize"
	EventTrack      EventKind = "track"
)

// TrackingEvent диагностическая запись журнала трекинга.
type TrackingEvent struct {
	ID                int64
	SessionID         string
	Kind              EventKind
	Status            string // TrackStatus для track, SessionState для initialize
	ReferenceFeatures int
	CurrentFeatures   int
	Matches           int
	Inliers           int
	Homography        Homography
	Note              string
	CreatedAt         time.Time
}

// SessionInfo снимок сессии для диагностики.
type SessionInfo struct {
	ID                string
	State             SessionState
	ReferenceFeatures int
	FrameWidth        int
	FrameHeight       int
	Region            Region
}

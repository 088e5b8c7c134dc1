package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"surface-tracker/internal/domain/entity"
)

const maxEventsLimit = 1000

type eventJSON struct {
	ID                int64         `json:"id"`
	Session           string        `json:"session"`
	Kind              string        `json:"kind"`
	Status            string        `json:"status"`
	ReferenceFeatures int           `json:"reference_features"`
	CurrentFeatures   int           `json:"current_features"`
	Matches           int           `json:"matches"`
	Inliers           int           `json:"inliers"`
	Homography        [3][3]float64 `json:"homography"`
	Note              string        `json:"note,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

func toEventJSON(e entity.TrackingEvent) eventJSON {
	return eventJSON{
		ID:                e.ID,
		Session:           e.SessionID,
		Kind:              string(e.Kind),
		Status:            e.Status,
		ReferenceFeatures: e.ReferenceFeatures,
		CurrentFeatures:   e.CurrentFeatures,
		Matches:           e.Matches,
		Inliers:           e.Inliers,
		Homography:        e.Homography.Rows(),
		Note:              e.Note,
		CreatedAt:         e.CreatedAt,
	}
}

// handleEvents GET /events?session=&limit= последние записи журнала, новые первыми.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := s.tracking.Events(r.Context(), r.URL.Query().Get("session"), limit)
	if err != nil {
		s.log.Error("read journal failed", "err", err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to read events")
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	app "surface-tracker/internal/application"
	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

const (
	DefaultMaxConcurrent  = 4
	DefaultMaxUploadBytes = 32 << 20
)

// Options настройки HTTP-сервера.
type Options struct {
	MaxConcurrent  int64
	MaxUploadBytes int64

	// JournalDB база журнала для /debug/tailsql/; nil отключает маршрут.
	JournalDB     *sql.DB
	JournalSource string
}

// Server HTTP-интерфейс трекера для хост-приложения.
type Server struct {
	tracking *app.TrackingService
	inpaint  *app.InpaintService
	codec    port.ImageCodec
	log      *slog.Logger

	sem       *semaphore.Weighted
	maxUpload int64
	opts      Options
	started   time.Time
}

// NewServer собирает сервер. Нулевые значения Options заменяются значениями по умолчанию.
func NewServer(tracking *app.TrackingService, inpaint *app.InpaintService, codec port.ImageCodec, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		tracking:  tracking,
		inpaint:   inpaint,
		codec:     codec,
		log:       log,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		maxUpload: opts.MaxUploadBytes,
		opts:      opts,
		started:   time.Now(),
	}
}

// ServeMux маршруты API. Тяжёлые обработчики ограничены по числу одновременных запросов.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/init_track", s.limited(http.HandlerFunc(s.handleInitTrack)))
	mux.Handle("/track_frame", s.limited(http.HandlerFunc(s.handleTrackFrame)))
	mux.Handle("/inpaint", s.limited(http.HandlerFunc(s.handleInpaint)))
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

// Handler полный обработчик: API, отладочные маршруты и журнал запросов.
func (s *Server) Handler() http.Handler {
	mux := s.ServeMux()
	s.AttachAdminRoutes(mux)
	return s.loggingMiddleware(mux)
}

// limited отклоняет запрос с 503, если все слоты заняты.
func (s *Server) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sem.TryAcquire(1) {
			s.writeJSONError(w, http.StatusServiceUnavailable, "server is busy")
			return
		}
		defer s.sem.Release(1)
		next.ServeHTTP(w, r)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		s.log.Debug("http request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", lrw.statusCode,
			"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// --- обработчики ---

type initTrackResponse struct {
	Status      string `json:"status"`
	PointsCount int    `json:"points_count"`
	Session     string `json:"session"`
}

func (s *Server) handleInitTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := s.codec.Decode(data)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid image data")
		return
	}
	points, err := parsePoints(r.FormValue("points_json"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := sessionParam(r)
	region := entity.NormalizedRegion(points, frame.Width, frame.Height)
	count, err := s.tracking.Initialize(r.Context(), sessionID, frame, region)
	if err != nil {
		s.writeJSONError(w, statusForError(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, initTrackResponse{
		Status:      "success",
		PointsCount: count,
		Session:     sessionID,
	})
}

type trackFrameResponse struct {
	Homography [3][3]float64 `json:"homography"`
	Status     string        `json:"status"`
	Matches    int           `json:"matches"`
	Inliers    int           `json:"inliers"`
	Error      string        `json:"error,omitempty"`
}

// handleTrackFrame всегда отвечает 200 с валидной гомографией: хост не должен падать из-за кадра.
func (s *Server) handleTrackFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	fallback := func(status entity.TrackStatus, msg string) {
		s.writeJSON(w, http.StatusOK, trackFrameResponse{
			Homography: entity.Identity().Rows(),
			Status:     string(status),
			Error:      msg,
		})
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		fallback(entity.StatusInvalidFrame, err.Error())
		return
	}
	frame, err := s.codec.Decode(data)
	if err != nil {
		fallback(entity.StatusInvalidFrame, err.Error())
		return
	}

	res, err := s.tracking.Track(r.Context(), sessionParam(r), frame)
	if err != nil {
		fallback(res.Status, err.Error())
		return
	}

	resp := trackFrameResponse{
		Homography: res.Homography.Rows(),
		Status:     string(res.Status),
		Matches:    res.Matches,
		Inliers:    res.Inliers,
	}
	if res.Status == entity.StatusFault || res.Status == entity.StatusInvalidFrame {
		resp.Error = res.Note
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInpaint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := s.codec.Decode(data)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid image")
		return
	}
	points, err := parsePoints(r.FormValue("points_json"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.inpaint.Inpaint(r.Context(), frame, entity.NormalizedRegion(points, frame.Width, frame.Height))
	if err != nil {
		s.log.Error("inpaint failed", "err", err)
		s.writeJSONError(w, statusForError(err), err.Error())
		return
	}
	jpeg, err := s.codec.EncodeJPEG(out)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpeg)
}

type statusResponse struct {
	Initialized       bool   `json:"initialized"`
	State             string `json:"state"`
	ReferenceFeatures int    `json:"reference_features"`
	Session           string `json:"session"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	info, err := s.tracking.Info(r.Context(), sessionParam(r))
	if err != nil {
		s.writeJSONError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toStatus(info))
}

func toStatus(info entity.SessionInfo) statusResponse {
	return statusResponse{
		Initialized:       info.State == entity.SessionTracking,
		State:             string(info.State),
		ReferenceFeatures: info.ReferenceFeatures,
		Session:           info.ID,
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		id, err := s.tracking.CreateSession(r.Context())
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]string{"session": id})
	case http.MethodGet:
		infos, err := s.tracking.Sessions(r.Context())
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]statusResponse, len(infos))
		for i, info := range infos {
			out[i] = toStatus(info)
		}
		s.writeJSON(w, http.StatusOK, out)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// --- утилиты ---

// readUpload читает файл из поля file multipart-формы с ограничением размера.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// parsePoints разбирает JSON-список точек [[x, y], ...] в нормализованных координатах.
func parsePoints(raw string) ([][2]float64, error) {
	if raw == "" {
		return nil, errors.New("points_json is required")
	}
	var list [][]float64
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("invalid points_json: %w", err)
	}
	points := make([][2]float64, len(list))
	for i, p := range list {
		if len(p) < 2 {
			return nil, fmt.Errorf("invalid points_json: point %d has %d coordinates", i, len(p))
		}
		points[i] = [2]float64{p[0], p[1]}
	}
	return points, nil
}

// sessionParam идентификатор сессии из формы или query; пусто означает сессию по умолчанию.
func sessionParam(r *http.Request) string {
	if id := r.FormValue("session"); id != "" {
		return id
	}
	return app.DefaultSessionID
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidFrame), errors.Is(err, entity.ErrInvalidRegion):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response failed", "err", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"detail": msg})
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultRecentLimit сколько событий отдаёт Recent, если лимит не задан.
const DefaultRecentLimit = 100

// SQLiteJournal журнал событий трекинга в SQLite.
// Только диагностика: состояние сессий из него не восстанавливается.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal открывает базу и применяет миграции.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// один коннект: SQLite пишет в один поток
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal pragma: %w", err)
	}

	j := &SQLiteJournal{db: db, path: path}
	if err := j.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// migrateUp применяет встроенные миграции до последней версии.
func (j *SQLiteJournal) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(j.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m не закрываем: это закрыло бы общий *sql.DB

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// DB нижележащее соединение, нужно для отладочных маршрутов.
func (j *SQLiteJournal) DB() *sql.DB {
	return j.db
}

// Path путь к файлу базы.
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Close закрывает базу.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record сохраняет событие.
func (j *SQLiteJournal) Record(ctx context.Context, event entity.TrackingEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	h, err := json.Marshal(event.Homography.Rows())
	if err != nil {
		return fmt.Errorf("encode homography: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO tracking_events
			(session_id, kind, status, reference_features, current_features, matches, inliers, homography, note, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.SessionID, string(event.Kind), event.Status,
		event.ReferenceFeatures, event.CurrentFeatures, event.Matches, event.Inliers,
		string(h), event.Note, createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

// Recent возвращает последние события, новые первыми. Пустой sessionID означает все сессии.
func (j *SQLiteJournal) Recent(ctx context.Context, sessionID string, limit int) ([]entity.TrackingEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT event_id, session_id, kind, status, reference_features, current_features,
		       matches, inliers, homography, note, created_at_ms
		FROM tracking_events
		WHERE (? = '' OR session_id = ?)
		ORDER BY event_id DESC
		LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query tracking events: %w", err)
	}
	defer rows.Close()

	var events []entity.TrackingEvent
	for rows.Next() {
		var (
			e         entity.TrackingEvent
			kind      string
			h         string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Status, &e.ReferenceFeatures, &e.CurrentFeatures,
			&e.Matches, &e.Inliers, &h, &e.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan tracking event: %w", err)
		}
		e.Kind = entity.EventKind(kind)
		e.CreatedAt = time.UnixMilli(createdAt)

		var m [3][3]float64
		if err := json.Unmarshal([]byte(h), &m); err != nil {
			return nil, fmt.Errorf("decode homography of event %d: %w", e.ID, err)
		}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				e.Homography[r*3+c] = m[r][c]
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

var _ port.EventJournal = (*SQLiteJournal)(nil)

// NopJournal журнал, который ничего не хранит.
type NopJournal struct{}

func (NopJournal) Record(ctx context.Context, event entity.TrackingEvent) error {
	return nil
}

func (NopJournal) Recent(ctx context.Context, sessionID string, limit int) ([]entity.TrackingEvent, error) {
	return nil, nil
}

var _ port.EventJournal = NopJournal{}

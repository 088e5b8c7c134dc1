package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"net/http"
	"slices"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"surface-tracker/internal/domain/entity"
)

// chartEvents сколько последних кадров попадает на график.
const chartEvents = 300

// AttachAdminRoutes монтирует /debug/: счётчики сессий, график инлайеров и tailsql по журналу.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Uptime", func() any { return time.Since(s.started).Round(time.Second) })
	debug.KVFunc("Sessions", func() any {
		infos, _ := s.tracking.Sessions(context.Background())
		return len(infos)
	})
	debug.KVFunc("Tracking sessions", func() any {
		infos, _ := s.tracking.Sessions(context.Background())
		n := 0
		for _, info := range infos {
			if info.State == entity.SessionTracking {
				n++
			}
		}
		return n
	})

	debug.Handle("inliers.png", "Matches and RANSAC inliers of recent frames", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events, err := s.tracking.Events(r.Context(), r.URL.Query().Get("session"), chartEvents)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read events: %v", err), http.StatusInternalServerError)
			return
		}
		png, err := renderInlierChart(events)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))

	if s.opts.JournalDB == nil {
		return
	}
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		s.log.Error("failed to create tailsql server", "err", err)
		return
	}
	source := s.opts.JournalSource
	if source == "" {
		source = "sqlite://tracking.db"
	}
	tsql.SetDB(source, s.opts.JournalDB, &tailsql.DBOptions{
		Label: "Tracking journal",
	})
	debug.Handle("tailsql/", "SQL over the tracking journal", tsql.NewMux())
}

// renderInlierChart строит PNG с числом сопоставлений и инлайеров по кадрам.
// events ожидаются в порядке журнала: новые первыми.
func renderInlierChart(events []entity.TrackingEvent) ([]byte, error) {
	tracks := make([]entity.TrackingEvent, 0, len(events))
	for _, e := range events {
		if e.Kind == entity.EventTrack {
			tracks = append(tracks, e)
		}
	}
	slices.Reverse(tracks)

	p := plot.New()
	p.Title.Text = "Tracking quality"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Correspondences"

	matches := make(plotter.XYs, len(tracks))
	inliers := make(plotter.XYs, len(tracks))
	for i, e := range tracks {
		matches[i] = plotter.XY{X: float64(i), Y: float64(e.Matches)}
		inliers[i] = plotter.XY{X: float64(i), Y: float64(e.Inliers)}
	}

	if len(tracks) > 0 {
		matchLine, err := plotter.NewLine(matches)
		if err != nil {
			return nil, err
		}
		matchLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
		matchLine.Width = vg.Points(1)
		p.Add(matchLine)
		p.Legend.Add("matches", matchLine)

		inlierLine, err := plotter.NewLine(inliers)
		if err != nil {
			return nil, err
		}
		inlierLine.Color = color.RGBA{R: 34, G: 139, B: 34, A: 255}
		inlierLine.Width = vg.Points(1.5)
		p.Add(inlierLine)
		p.Legend.Add("inliers", inlierLine)
	}
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

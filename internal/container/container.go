package container

import (
	"log/slog"

	app "surface-tracker/internal/application"
	"surface-tracker/internal/domain/port"
)

// Deps адаптеры инфраструктуры, из которых собираются сервисы.
type Deps struct {
	Users     port.UserRepository
	Sessions  port.SessionRepository
	Extractor port.FeatureExtractor
	Inpainter port.Inpainter
	Overlay   port.OverlayRenderer
	Codec     port.ImageCodec
	Journal   port.EventJournal
	Log       *slog.Logger
}

type Container struct {
	UserService     *app.UserService
	TrackingService *app.TrackingService
	InpaintService  *app.InpaintService
	Codec           port.ImageCodec
}

func New(d Deps) *Container {
	userService := app.NewUserService(d.Users)
	trackingService := app.NewTrackingService(d.Sessions, d.Extractor, d.Overlay, d.Journal, d.Log)
	inpaintService := app.NewInpaintService(d.Inpainter)

	return &Container{
		UserService:     userService,
		TrackingService: trackingService,
		InpaintService:  inpaintService,
		Codec:           d.Codec,
	}
}

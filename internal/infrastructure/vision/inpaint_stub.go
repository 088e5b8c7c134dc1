//go:build !gocv
// +build !gocv

package vision

import (
	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// Restorer заглушка без OpenCV.
type Restorer struct{}

// NewRestorer создаёт реставратор-заглушку.
func NewRestorer() *Restorer {
	return &Restorer{}
}

// Inpaint возвращает ошибку, если сборка без тега gocv.
func (r *Restorer) Inpaint(frame entity.Frame, mask []byte) (entity.Frame, error) {
	_ = frame
	_ = mask
	return entity.Frame{}, errNoGoCV
}

// DrawRegion возвращает ошибку, если сборка без тега gocv.
func (r *Restorer) DrawRegion(frame entity.Frame, region entity.Region) (entity.Frame, error) {
	_ = frame
	_ = region
	return entity.Frame{}, errNoGoCV
}

var (
	_ port.Inpainter       = (*Restorer)(nil)
	_ port.OverlayRenderer = (*Restorer)(nil)
)

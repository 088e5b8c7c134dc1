//go:build gocv
// +build gocv

package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// InpaintRadius радиус окрестности для метода Телеа.
const InpaintRadius = 3

// Restorer восстанавливает область под маской и рисует оверлей.
type Restorer struct{}

// NewRestorer создаёт реставратор на OpenCV.
func NewRestorer() *Restorer {
	return &Restorer{}
}

// Inpaint закрашивает пиксели маски методом Телеа.
func (r *Restorer) Inpaint(frame entity.Frame, mask []byte) (entity.Frame, error) {
	src, err := matFromFrame(frame)
	if err != nil {
		return entity.Frame{}, err
	}
	defer src.Close()

	maskMat, err := matFromMask(mask, frame.Width, frame.Height)
	if err != nil {
		return entity.Frame{}, err
	}
	defer maskMat.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(src, maskMat, &dst, InpaintRadius, gocv.Telea)

	return frameFromMat(dst)
}

// DrawRegion обводит полигон зелёной линией поверх копии кадра.
func (r *Restorer) DrawRegion(frame entity.Frame, region entity.Region) (entity.Frame, error) {
	mat, err := matFromFrame(frame)
	if err != nil {
		return entity.Frame{}, err
	}
	defer mat.Close()

	out := mat.Clone()
	defer out.Close()

	if len(region) >= 2 {
		pts := make([]image.Point, len(region))
		for i, p := range region {
			pts[i] = image.Pt(int(p.X+0.5), int(p.Y+0.5))
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		defer pv.Close()

		green := color.RGBA{G: 255, A: 255}
		gocv.Polylines(&out, pv, true, green, 2)
	}

	return frameFromMat(out)
}

var (
	_ port.Inpainter       = (*Restorer)(nil)
	_ port.OverlayRenderer = (*Restorer)(nil)
)

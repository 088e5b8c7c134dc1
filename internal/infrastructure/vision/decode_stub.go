//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"surface-tracker/internal/domain/entity"
)

// decodeFrame декодирует JPEG/PNG/BMP/WebP без OpenCV.
func decodeFrame(data []byte) (entity.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return entity.Frame{}, err
	}
	return frameFromImage(img), nil
}

// frameFromImage переводит image.Image в BGR-кадр.
func frameFromImage(img image.Image) entity.Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	frame := entity.NewFrame(b.Dx(), b.Dy())
	for y := 0; y < frame.Height; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < frame.Width; x++ {
			frame.Set(x, y, row[x*4+2], row[x*4+1], row[x*4])
		}
	}
	return frame
}

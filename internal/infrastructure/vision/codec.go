package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// JPEGQuality качество кодирования ответов.
const JPEGQuality = 90

// ImageCodec декодирует сжатое изображение в BGR-кадр и кодирует кадр в JPEG.
// С тегом gocv декодирует OpenCV, без него стандартные декодеры и golang.org/x/image.
type ImageCodec struct{}

// NewImageCodec создаёт кодек.
func NewImageCodec() *ImageCodec {
	return &ImageCodec{}
}

// Decode превращает байты изображения в кадр.
func (c *ImageCodec) Decode(data []byte) (entity.Frame, error) {
	frame, err := decodeFrame(data)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("%w: %v", entity.ErrInvalidFrame, err)
	}
	if err := frame.Validate(); err != nil {
		return entity.Frame{}, err
	}
	return frame, nil
}

// EncodeJPEG кодирует кадр в JPEG.
func (c *ImageCodec) EncodeJPEG(frame entity.Frame) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, ImageFromFrame(frame), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageFromFrame переводит BGR-кадр в *image.RGBA.
func ImageFromFrame(frame entity.Frame) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < frame.Width; x++ {
			b, g, r := frame.At(x, y)
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = r, g, b, 0xff
		}
	}
	return rgba
}

// Проверка реализации интерфейса
var _ port.ImageCodec = (*ImageCodec)(nil)

package port

import "surface-tracker/internal/domain/entity"

// ImageCodec переводит сжатые байты в растр и обратно
type ImageCodec interface {
	// Decode декодирует JPEG/PNG/BMP/WebP в BGR-кадр
	Decode(data []byte) (entity.Frame, error)

	// EncodeJPEG кодирует кадр в JPEG
	EncodeJPEG(frame entity.Frame) ([]byte, error)
}

// Inpainter восстанавливает изображение под маской
type Inpainter interface {
	Inpaint(frame entity.Frame, mask []byte) (entity.Frame, error)
}

// OverlayRenderer рисует отслеживаемую область поверх кадра
type OverlayRenderer interface {
	DrawRegion(frame entity.Frame, region entity.Region) (entity.Frame, error)
}

package app

import (
	"context"
	"errors"
	"fmt"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
	"surface-tracker/internal/infrastructure/vision"
)

// InpaintService восстанавливает изображение под выбранной областью. Состояния не хранит.
type InpaintService struct {
	inpainter port.Inpainter
}

// NewInpaintService создаёт сервис восстановления.
func NewInpaintService(inpainter port.Inpainter) *InpaintService {
	return &InpaintService{inpainter: inpainter}
}

// Inpaint закрашивает область region по окружающим пикселям.
func (s *InpaintService) Inpaint(ctx context.Context, frame entity.Frame, region entity.Region) (entity.Frame, error) {
	_ = ctx
	if s.inpainter == nil {
		return entity.Frame{}, errors.New("inpainter is not configured")
	}
	if err := frame.Validate(); err != nil {
		return entity.Frame{}, err
	}
	if err := region.Validate(); err != nil {
		return entity.Frame{}, err
	}

	mask := vision.RasterizeRegion(region, frame.Width, frame.Height)
	out, err := s.inpainter.Inpaint(frame, mask)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("inpaint: %w", err)
	}
	return out, nil
}

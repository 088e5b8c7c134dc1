package port

import "surface-tracker/internal/domain/entity"

// FeatureExtractor интерфейс детектора особых точек
type FeatureExtractor interface {
	// Extract находит особые точки и дескрипторы кадра.
	// mask либо nil, либо буфер width*height; ненулевые байты разрешают детекцию.
	Extract(frame entity.Frame, mask []byte) (entity.DescriptorSet, error)
}

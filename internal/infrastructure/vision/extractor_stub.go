//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// errNoGoCV возвращается всеми заглушками OpenCV.
var errNoGoCV = errors.New("gocv build tag is not enabled")

// SIFTExtractor заглушка без OpenCV.
type SIFTExtractor struct{}

// NewSIFTExtractor создаёт экстрактор-заглушку (без OpenCV).
func NewSIFTExtractor() *SIFTExtractor {
	return &SIFTExtractor{}
}

// Close ничего не делает.
func (e *SIFTExtractor) Close() error {
	return nil
}

// Extract возвращает ошибку, если сборка без тега gocv.
func (e *SIFTExtractor) Extract(frame entity.Frame, mask []byte) (entity.DescriptorSet, error) {
	_ = frame
	_ = mask
	return entity.DescriptorSet{}, errNoGoCV
}

var _ port.FeatureExtractor = (*SIFTExtractor)(nil)

//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/domain/port"
)

// SIFTExtractor ищет особые точки SIFT через OpenCV.
type SIFTExtractor struct {
	mu   sync.Mutex
	sift gocv.SIFT
}

// NewSIFTExtractor создаёт экстрактор. Вызывающий обязан вызвать Close.
func NewSIFTExtractor() *SIFTExtractor {
	return &SIFTExtractor{sift: gocv.NewSIFT()}
}

// Close освобождает детектор OpenCV.
func (e *SIFTExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sift.Close()
}

// Extract переводит кадр в оттенки серого и запускает SIFT внутри маски.
func (e *SIFTExtractor) Extract(frame entity.Frame, mask []byte) (entity.DescriptorSet, error) {
	src, err := matFromFrame(frame)
	if err != nil {
		return entity.DescriptorSet{}, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	maskMat, err := matFromMask(mask, frame.Width, frame.Height)
	if err != nil {
		return entity.DescriptorSet{}, err
	}
	defer maskMat.Close()

	e.mu.Lock()
	kps, desc := e.sift.DetectAndCompute(gray, maskMat)
	e.mu.Unlock()
	defer desc.Close()

	if len(kps) == 0 || desc.Empty() {
		return entity.NewDescriptorSet(nil, nil)
	}
	if desc.Rows() != len(kps) {
		return entity.DescriptorSet{}, fmt.Errorf("sift returned %d keypoints but %d descriptors", len(kps), desc.Rows())
	}

	keypoints := make([]entity.Keypoint, len(kps))
	descriptors := make([]entity.Descriptor, len(kps))
	for i, kp := range kps {
		keypoints[i] = entity.Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
		d := make(entity.Descriptor, desc.Cols())
		for j := range d {
			d[j] = float64(desc.GetFloatAt(i, j))
		}
		descriptors[i] = d
	}

	return entity.NewDescriptorSet(keypoints, descriptors)
}

// matFromFrame превращает BGR-кадр в gocv.Mat.
func matFromFrame(frame entity.Frame) (gocv.Mat, error) {
	if err := frame.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("frame to mat: %w", err)
	}
	return mat, nil
}

// matFromMask превращает маску в одноканальный Mat; nil даёт пустой Mat (без маски).
func matFromMask(mask []byte, width, height int) (gocv.Mat, error) {
	if mask == nil {
		return gocv.NewMat(), nil
	}
	if len(mask) != width*height {
		return gocv.NewMat(), errors.New("mask size does not match frame")
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, mask)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("mask to mat: %w", err)
	}
	return mat, nil
}

// frameFromMat копирует BGR-пиксели Mat в кадр.
func frameFromMat(mat gocv.Mat) (entity.Frame, error) {
	if mat.Empty() {
		return entity.Frame{}, errors.New("empty image")
	}
	frame := entity.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}
	return frame, frame.Validate()
}

// Проверка реализации интерфейса
var _ port.FeatureExtractor = (*SIFTExtractor)(nil)

package entity

import "fmt"

// Keypoint особая точка, найденная экстрактором.
type Keypoint struct {
	X        float64 // субпиксельная координата X
	Y        float64 // субпиксельная координата Y
	Size     float64 // масштаб
	Angle    float64 // ориентация в градусах
	Response float64 // сила отклика
	Octave   int
}

// Point возвращает положение особой точки.
func (k Keypoint) Point() Point {
	return Point{X: k.X, Y: k.Y}
}

// Descriptor вектор-отпечаток окрестности особой точки.
type Descriptor []float64

// DescriptorSet особые точки и дескрипторы, связанные только индексом.
type DescriptorSet struct {
	keypoints   []Keypoint
	descriptors []Descriptor
}

// NewDescriptorSet собирает набор и проверяет, что последовательности одной длины.
func NewDescriptorSet(keypoints []Keypoint, descriptors []Descriptor) (DescriptorSet, error) {
	if len(keypoints) != len(descriptors) {
		return DescriptorSet{}, fmt.Errorf("descriptor set: %d keypoints but %d descriptors", len(keypoints), len(descriptors))
	}
	return DescriptorSet{keypoints: keypoints, descriptors: descriptors}, nil
}

// Len количество пар.
func (s DescriptorSet) Len() int {
	return len(s.keypoints)
}

// Keypoint возвращает i-ю особую точку.
func (s DescriptorSet) Keypoint(i int) Keypoint {
	return s.keypoints[i]
}

// Descriptor возвращает i-й дескриптор.
func (s DescriptorSet) Descriptor(i int) Descriptor {
	return s.descriptors[i]
}

// Point возвращает положение i-й особой точки.
func (s DescriptorSet) Point(i int) Point {
	return s.keypoints[i].Point()
}

// Correspondence пара индексов (опорный, текущий) и расстояние между дескрипторами.
type Correspondence struct {
	ReferenceIndex int
	CurrentIndex   int
	Distance       float64
}

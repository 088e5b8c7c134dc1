package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidFrame кадр не удалось декодировать или буфер не совпадает с размерами.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame декодированный растр: BGR, 3 байта на пиксель, построчно.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame создаёт чёрный кадр заданного размера.
func NewFrame(width, height int) Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Validate проверяет, что буфер кадра согласован с его размерами.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: bad dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("%w: buffer has %d bytes, want %d", ErrInvalidFrame, len(f.Pix), f.Width*f.Height*3)
	}
	return nil
}

// At возвращает BGR-компоненты пикселя.
func (f Frame) At(x, y int) (b, g, r byte) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set записывает BGR-компоненты пикселя.
func (f Frame) Set(x, y int, b, g, r byte) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

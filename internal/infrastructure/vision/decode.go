//go:build gocv
// +build gocv

package vision

import (
	"errors"

	"gocv.io/x/gocv"

	"surface-tracker/internal/domain/entity"
)

// decodeFrame декодирует изображение через OpenCV сразу в BGR.
func decodeFrame(data []byte) (entity.Frame, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if !mat.Empty() {
			mat.Close()
		}
		return entity.Frame{}, errors.New("failed to decode image")
	}
	defer mat.Close()

	return frameFromMat(mat)
}

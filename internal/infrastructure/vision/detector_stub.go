//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"leafbot/internal/domain/entity"
)

// LeafSegmenter — заглушка сегментатора для сборки без OpenCV.
type LeafSegmenter struct {
	ReferenceLabel        string
	TargetLabel           string
	MaxSide               int
	MinImageSide          int
	MinAreaRatio          float64
	MinCircularity        float64
	MinSharpnessEdgeRatio float64
}

// NewLeafSegmenter создаёт сегментатор-заглушку (без OpenCV).
func NewLeafSegmenter(referenceLabel, targetLabel string) *LeafSegmenter {
	return &LeafSegmenter{
		ReferenceLabel:        referenceLabel,
		TargetLabel:           targetLabel,
		MaxSide:               1024,
		MinImageSide:          400,
		MinAreaRatio:          0.002,
		MinCircularity:        0.72,
		MinSharpnessEdgeRatio: 0.008,
	}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *LeafSegmenter) Detect(ctx context.Context, imageData []byte) (*entity.DetectionSet, error) {
	_ = ctx
	_ = imageData
	return nil, errors.New("gocv build tag is not enabled")
}

// Annotate возвращает ошибку, если сборка без тега gocv.
func (d *LeafSegmenter) Annotate(imageData []byte, set *entity.DetectionSet, result *entity.MeasurementResult) ([]byte, error) {
	_ = imageData
	_ = set
	_ = result
	return nil, errors.New("gocv build tag is not enabled")
}

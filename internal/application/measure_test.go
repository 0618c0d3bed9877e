package app

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"leafbot/internal/domain/entity"
)

const coinDiameterMM = 27.2

func newTestMeasurer() *MeasureService {
	return NewMeasureService("coin", "leaf", "500 IDR", coinDiameterMM)
}

// diameterForScale подбирает диаметр эталона так, чтобы при площади
// контура refPixelArea масштаб получился ровно scale мм²/пиксель².
func diameterForScale(scale, refPixelArea float64) float64 {
	return 2 * math.Sqrt(scale*refPixelArea/math.Pi)
}

func square(x, y, w, h float64) []entity.Point {
	return []entity.Point{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func coin(poly []entity.Point) entity.Detection {
	return entity.Detection{Label: "coin", Polygon: poly}
}

func leaf(poly []entity.Point, box entity.BoundingBox) entity.Detection {
	return entity.Detection{Label: "leaf", Polygon: poly, Box: box}
}

func TestMeasureService_ReferenceArea(t *testing.T) {
	svc := newTestMeasurer()
	want := math.Pi * (coinDiameterMM / 2) * (coinDiameterMM / 2)
	require.InDelta(t, want, svc.ReferenceAreaMM2(), 1e-9)
	require.InDelta(t, 581.07, svc.ReferenceAreaMM2(), 0.01)
}

func TestCalibrate_NoReference(t *testing.T) {
	svc := newTestMeasurer()

	_, _, err := svc.calibrate([]entity.Detection{
		leaf(square(0, 0, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	})
	require.ErrorIs(t, err, entity.ErrReferenceNotFound)

	_, _, err = svc.calibrate(nil)
	require.ErrorIs(t, err, entity.ErrReferenceNotFound)
}

func TestCalibrate_SingleReference(t *testing.T) {
	svc := newTestMeasurer()

	pixelArea, scale, err := svc.calibrate([]entity.Detection{coin(square(0, 0, 10, 10))})
	require.NoError(t, err)
	require.InDelta(t, 100.0, pixelArea, 1e-12)
	require.InDelta(t, svc.ReferenceAreaMM2()/100, scale, 1e-12)
	require.Greater(t, scale, 0.0)
}

func TestCalibrate_FirstReferenceWins(t *testing.T) {
	svc := newTestMeasurer()

	// Две монеты разного размера: масштаб должен соответствовать первой.
	pixelArea, scale, err := svc.calibrate([]entity.Detection{
		coin(square(0, 0, 10, 10)),
		coin(square(50, 50, 20, 20)),
	})
	require.NoError(t, err)
	require.InDelta(t, 100.0, pixelArea, 1e-12)
	require.InDelta(t, svc.ReferenceAreaMM2()/100, scale, 1e-12)
}

func TestCalibrate_DegenerateReference(t *testing.T) {
	svc := newTestMeasurer()

	_, _, err := svc.calibrate([]entity.Detection{
		coin([]entity.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}),
	})
	require.ErrorIs(t, err, entity.ErrDegenerateReference)
}

func TestMeasure_EmptyTargetSetIsSuccess(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
	}})

	require.True(t, result.Success)
	require.True(t, result.ReferenceDetected)
	require.Empty(t, result.Measurements)
	require.Equal(t, 0.0, result.TotalAreaMM2)
	require.Nil(t, result.ShapeConstant)
}

func TestMeasure_ScalesLinearlyWithReferenceConstant(t *testing.T) {
	detections := []entity.Detection{
		coin(square(0, 0, 10, 10)),
		leaf(square(20, 20, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	}

	base := newTestMeasurer().Measure(&entity.DetectionSet{Detections: detections})

	// Диаметр, дающий вдвое большую истинную площадь монеты.
	doubled := NewMeasureService("coin", "leaf", "500 IDR", coinDiameterMM*math.Sqrt2).
		Measure(&entity.DetectionSet{Detections: detections})

	require.True(t, base.Success)
	require.True(t, doubled.Success)
	require.InEpsilon(t, 2*base.Measurements[0].AreaMM2, doubled.Measurements[0].AreaMM2, 1e-9)
	require.InEpsilon(t, 2*base.TotalAreaMM2, doubled.TotalAreaMM2, 1e-9)
}

// Сценарий: монета 10×10 px, лист 5×5 px, диаметр 27.2 мм.
func TestMeasure_CoinAndSingleLeaf(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{
		ImageWidth:  640,
		ImageHeight: 480,
		Detections: []entity.Detection{
			coin(square(0, 0, 10, 10)),
			leaf(square(100, 100, 5, 5), entity.BoundingBox{X: 100, Y: 100, Width: 5, Height: 5}),
		},
	})

	require.True(t, result.Success)
	require.True(t, result.ReferenceDetected)
	require.Empty(t, result.FailureReason)

	scale := svc.ReferenceAreaMM2() / 100
	require.InDelta(t, 5.8105, scale, 0.001)
	require.InDelta(t, scale, result.ScaleFactor, 1e-12)
	require.InDelta(t, 100.0, result.ReferencePixelArea, 1e-12)

	require.Len(t, result.Measurements, 1)
	m := result.Measurements[0]
	require.Equal(t, 1, m.Index)
	require.InDelta(t, 25.0, m.PixelArea, 1e-12)
	require.InDelta(t, 25*scale, m.AreaMM2, 1e-9)
	require.InDelta(t, 145.27, m.AreaMM2, 0.01)
	require.InDelta(t, m.AreaMM2, result.TotalAreaMM2, 1e-12)

	require.Equal(t, "500 IDR", result.ReferenceKind)
	require.Equal(t, coinDiameterMM, result.ReferenceDiameterMM)
}

// Сценарий: монеты нет, листья есть.
func TestMeasure_NoCoin(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		leaf(square(0, 0, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
		leaf(square(20, 0, 7, 7), entity.BoundingBox{Width: 7, Height: 7}),
	}})

	require.False(t, result.Success)
	require.False(t, result.ReferenceDetected)
	require.Empty(t, result.Measurements)
	require.Contains(t, result.FailureReason, "coin not detected")

	require.Len(t, result.Overlay, 1)
	require.Equal(t, 1, result.Overlay[0].Line)
	require.Equal(t, "Reference Coin Not Detected - Cannot Calculate Area", result.Overlay[0].Text)
}

func TestMeasure_DegenerateCoin(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(nil),
		leaf(square(0, 0, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	}})

	require.False(t, result.Success)
	// Монета найдена, но измерить её нельзя — причина другая.
	require.True(t, result.ReferenceDetected)
	require.Contains(t, result.FailureReason, "calibration impossible")
	require.Len(t, result.Overlay, 1)
}

// Сценарий: три листа с площадями 10, 20, 30 px² при масштабе 2.0.
func TestMeasure_ThreeLeaves(t *testing.T) {
	svc := NewMeasureService("coin", "leaf", "500 IDR", diameterForScale(2.0, 100))

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
		leaf(square(20, 0, 5, 2), entity.BoundingBox{Width: 5, Height: 2}),
		leaf(square(40, 0, 5, 4), entity.BoundingBox{Width: 5, Height: 4}),
		leaf(square(60, 0, 5, 6), entity.BoundingBox{Width: 5, Height: 6}),
	}})

	require.True(t, result.Success)
	require.Len(t, result.Measurements, 3)

	want := []float64{20, 40, 60}
	for i, m := range result.Measurements {
		require.Equal(t, i+1, m.Index)
		require.InDelta(t, want[i], m.AreaMM2, 1e-9)
	}
	require.InDelta(t, 120.0, result.TotalAreaMM2, 1e-9)
}

func TestMeasure_IgnoresUnknownLabels(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
		{Label: "pot", Polygon: square(30, 30, 40, 40)},
		leaf(square(100, 100, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	}})

	require.True(t, result.Success)
	require.Len(t, result.Measurements, 1)
}

func TestMeasure_OverlayOrder(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
		leaf(square(20, 20, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
		leaf(square(40, 40, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	}})

	require.True(t, result.Success)
	require.Len(t, result.Overlay, 3)

	for i, line := range result.Overlay {
		require.Equal(t, i+1, line.Line)
	}

	require.Contains(t, result.Overlay[0].Text, "Total Leaf Area:")
	require.Contains(t, result.Overlay[1].Text, "Coin Ref:")
	require.Contains(t, result.Overlay[1].Text, fmt.Sprintf("(%.1fmm)", coinDiameterMM))
	require.Equal(t, "Leaves Detected: 2", result.Overlay[2].Text)
}

func TestMeasure_ShapeConstant(t *testing.T) {
	// Квадратный лист целиком заполняет свою рамку,
	// поэтому константа формы равна единице независимо от масштаба.
	svc := newTestMeasurer()

	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
		leaf(square(20, 20, 5, 5), entity.BoundingBox{Width: 5, Height: 5}),
	}})

	require.True(t, result.Success)
	require.NotNil(t, result.ShapeConstant)
	require.InDelta(t, 1.0, *result.ShapeConstant, 1e-9)
}

func TestMeasure_ShapeConstantAbsentOnZeroBox(t *testing.T) {
	svc := newTestMeasurer()

	// Рамка без размеров: знаменатель нулевой, константы нет.
	result := svc.Measure(&entity.DetectionSet{Detections: []entity.Detection{
		coin(square(0, 0, 10, 10)),
		leaf(square(20, 20, 5, 5), entity.BoundingBox{}),
	}})

	require.True(t, result.Success)
	require.Nil(t, result.ShapeConstant)
}

func TestMeasure_NilSet(t *testing.T) {
	svc := newTestMeasurer()

	result := svc.Measure(nil)
	require.False(t, result.Success)
	require.False(t, result.ReferenceDetected)
}

package app

import (
	"fmt"
	"math"

	"leafbot/internal/domain/entity"
)

const overlayNoReference = "Reference Coin Not Detected - Cannot Calculate Area"

// MeasureService считает реальную площадь листьев по детекциям,
// калибруясь по монете известного диаметра. Чистое вычисление:
// без ввода-вывода и разделяемого состояния, один вызов на одно фото.
type MeasureService struct {
	referenceLabel   string  // класс эталонного объекта ("coin")
	targetLabel      string  // класс измеряемых объектов ("leaf")
	referenceKind    string  // описание эталона для отчёта ("500 IDR")
	diameterMM       float64 // диаметр эталона в мм
	referenceAreaMM2 float64 // истинная площадь эталона, π·(d/2)²
}

// NewMeasureService создаёт сервис измерения.
// Площадь эталона выводится из диаметра один раз, не на каждый вызов.
func NewMeasureService(referenceLabel, targetLabel, referenceKind string, diameterMM float64) *MeasureService {
	return &MeasureService{
		referenceLabel:   referenceLabel,
		targetLabel:      targetLabel,
		referenceKind:    referenceKind,
		diameterMM:       diameterMM,
		referenceAreaMM2: math.Pi * (diameterMM / 2) * (diameterMM / 2),
	}
}

// ReferenceAreaMM2 возвращает истинную площадь эталона в мм².
func (s *MeasureService) ReferenceAreaMM2() float64 {
	return s.referenceAreaMM2
}

// Measure выполняет полный цикл: калибровка, измерение листьев, компоновка итога.
// Никогда не возвращает ошибку: любой исход, включая отсутствие монеты,
// упаковывается в MeasurementResult.
func (s *MeasureService) Measure(set *entity.DetectionSet) (result *entity.MeasurementResult) {
	// Неожиданный сбой на кривых данных превращаем в структурный отказ,
	// чтобы вызывающий слой мог показать пользователю сообщение.
	defer func() {
		if r := recover(); r != nil {
			result = s.failure(fmt.Sprintf("internal measurement fault: %v", r), false)
		}
	}()

	var detections []entity.Detection
	if set != nil {
		detections = set.Detections
	}

	refPixelArea, scale, err := s.calibrate(detections)
	if err == entity.ErrReferenceNotFound {
		return s.failure("coin not detected - calibration required", false)
	}
	if err != nil {
		return s.failure("coin contour has no area - calibration impossible", true)
	}

	measurements, total, shape := s.aggregate(detections, scale)

	return &entity.MeasurementResult{
		Success:             true,
		ReferenceDetected:   true,
		Measurements:        measurements,
		TotalAreaMM2:        total,
		ShapeConstant:       shape,
		Overlay:             s.successOverlay(total, len(measurements)),
		ReferenceKind:       s.referenceKind,
		ReferenceDiameterMM: s.diameterMM,
		ReferenceAreaMM2:    s.referenceAreaMM2,
		ReferencePixelArea:  refPixelArea,
		ScaleFactor:         scale,
	}
}

// calibrate выбирает эталон и считает масштаб мм² на пиксель².
// Берётся первая детекция с меткой эталона в порядке детектора,
// остальные монеты игнорируются.
func (s *MeasureService) calibrate(detections []entity.Detection) (float64, float64, error) {
	var reference *entity.Detection
	for i := range detections {
		if detections[i].Label == s.referenceLabel {
			reference = &detections[i]
			break
		}
	}
	if reference == nil {
		return 0, 0, entity.ErrReferenceNotFound
	}

	pixelArea := entity.PolygonArea(reference.Polygon)
	if pixelArea <= 0 {
		return pixelArea, 0, entity.ErrDegenerateReference
	}

	return pixelArea, s.referenceAreaMM2 / pixelArea, nil
}

// aggregate измеряет все листья и выводит экспериментальную константу формы.
// Пустой набор листьев — нормальный исход, а не ошибка.
func (s *MeasureService) aggregate(detections []entity.Detection, scale float64) ([]entity.Measurement, float64, *float64) {
	measurements := make([]entity.Measurement, 0, len(detections))
	var total float64
	var sumWidth, sumHeight float64

	for i := range detections {
		if detections[i].Label != s.targetLabel {
			continue
		}

		pixelArea := entity.PolygonArea(detections[i].Polygon)
		areaMM2 := pixelArea * scale
		total += areaMM2

		measurements = append(measurements, entity.Measurement{
			Index:     len(measurements) + 1,
			PixelArea: pixelArea,
			AreaMM2:   areaMM2,
		})

		sumWidth += detections[i].Box.Width
		sumHeight += detections[i].Box.Height
	}

	// Константа формы: отношение суммарной площади к произведению средних
	// габаритов рамок, переведённых в мм. Позволяет потом прикидывать
	// площадь по одной рамке без сегментации.
	var shape *float64
	if n := len(measurements); n > 0 {
		linear := math.Sqrt(scale) // масштаб площади -> линейный масштаб
		meanWidthMM := sumWidth / float64(n) * linear
		meanHeightMM := sumHeight / float64(n) * linear
		if denom := meanHeightMM * meanWidthMM; denom > 0 {
			c := total / denom
			shape = &c
		}
	}

	return measurements, total, shape
}

// successOverlay собирает строки аннотации в фиксированном порядке:
// итоговая площадь, справка об эталоне, число листьев.
func (s *MeasureService) successOverlay(totalMM2 float64, leafCount int) []entity.OverlayLine {
	return []entity.OverlayLine{
		{Text: fmt.Sprintf("Total Leaf Area: %.2f cm^2 (%.1f mm^2)", totalMM2/100, totalMM2), Line: 1},
		{Text: fmt.Sprintf("Coin Ref: %.1f mm^2 (%.1fmm)", s.referenceAreaMM2, s.diameterMM), Line: 2},
		{Text: fmt.Sprintf("Leaves Detected: %d", leafCount), Line: 3},
	}
}

// failure собирает итог неудачной калибровки с единственной строкой-баннером.
func (s *MeasureService) failure(reason string, referenceDetected bool) *entity.MeasurementResult {
	return &entity.MeasurementResult{
		Success:             false,
		ReferenceDetected:   referenceDetected,
		FailureReason:       reason,
		Overlay:             []entity.OverlayLine{{Text: overlayNoReference, Line: 1}},
		ReferenceKind:       s.referenceKind,
		ReferenceDiameterMM: s.diameterMM,
		ReferenceAreaMM2:    s.referenceAreaMM2,
	}
}

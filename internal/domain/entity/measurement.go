package entity

import "errors"

// Ошибки калибровки. Обе — ожидаемые исходы, а не сбои:
// на фото может просто не оказаться монеты.
var (
	// ErrReferenceNotFound — ни один объект не помечен как эталон.
	ErrReferenceNotFound = errors.New("reference object not found")

	// ErrDegenerateReference — эталон найден, но его контур не имеет площади.
	ErrDegenerateReference = errors.New("reference polygon has zero area")
)

// Measurement — измерение одного листа.
type Measurement struct {
	Index     int     // порядковый номер в порядке детекции, с единицы
	PixelArea float64 // площадь контура в пикселях²
	AreaMM2   float64 // реальная площадь в мм²
}

// OverlayLine — одна строка текста для отрисовки поверх изображения.
// Line задаёт порядок сверху вниз, точные пиксельные координаты
// выбирает отрисовщик.
type OverlayLine struct {
	Text string
	Line int // номер строки сверху, с единицы
}

// MeasurementResult хранит итог измерения одного изображения.
// Создаётся один раз компоновщиком и дальше не меняется.
type MeasurementResult struct {
	Success           bool          // удалось ли измерить
	ReferenceDetected bool          // найден ли эталонный объект
	FailureReason     string        // причина неудачи, пусто при успехе
	Measurements      []Measurement // по одному на каждый лист
	TotalAreaMM2      float64       // суммарная площадь листьев в мм²
	ShapeConstant     *float64      // экспериментальная константа формы, nil если не вычислима
	Overlay           []OverlayLine // строки для аннотированного изображения

	// Метаданные калибровки.
	ReferenceKind       string  // описание эталона ("500 IDR")
	ReferenceDiameterMM float64 // диаметр эталона в мм
	ReferenceAreaMM2    float64 // истинная площадь эталона в мм²
	ReferencePixelArea  float64 // площадь контура эталона в пикселях²
	ScaleFactor         float64 // мм² на пиксель²
}

// TotalAreaCM2 возвращает суммарную площадь в см².
// Перевод единиц — забота представления, ядро хранит мм².
func (r *MeasurementResult) TotalAreaCM2() float64 {
	return r.TotalAreaMM2 / 100
}

// LeafCount возвращает число измеренных листьев.
func (r *MeasurementResult) LeafCount() int {
	return len(r.Measurements)
}

package entity

// Point — точка контура в пиксельных координатах изображения.
type Point struct {
	X float64
	Y float64
}

// BoundingBox описывает прямоугольник вокруг объекта.
type BoundingBox struct {
	X      float64 // координата X левого верхнего угла
	Y      float64 // координата Y левого верхнего угла
	Width  float64 // ширина в пикселях
	Height float64 // высота в пикселях
}

// Center возвращает координаты центра прямоугольника.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Detection представляет один распознанный объект на изображении.
type Detection struct {
	Label   string      // класс объекта ("coin", "leaf")
	Polygon []Point     // контур объекта в порядке обхода
	Box     BoundingBox // ограничивающий прямоугольник
}

// DetectionSet хранит все распознанные объекты одного изображения.
type DetectionSet struct {
	ImageWidth  int         // ширина изображения
	ImageHeight int         // высота изображения
	Detections  []Detection // объекты в порядке, который вернул детектор
}

package entity

import "math"

// PolygonArea считает площадь многоугольника по формуле шнуровки (shoelace).
// Модуль суммы делает результат независимым от направления обхода контура.
// Меньше трёх точек — площади нет, возвращаем 0.
func PolygonArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	var sum float64
	for i := range points {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}

	return 0.5 * math.Abs(sum)
}

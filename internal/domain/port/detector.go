package port

import (
	"context"

	"leafbot/internal/domain/entity"
)

// LeafDetector интерфейс сегментатора изображений.
// Реализация загружается один раз при старте процесса и переиспользуется;
// ядро измерения получает уже готовые детекции и ресурсами модели не управляет.
type LeafDetector interface {
	// Detect находит на изображении объекты и возвращает их контуры и классы
	Detect(ctx context.Context, imageData []byte) (*entity.DetectionSet, error)

	// Annotate рисует контуры и строки Overlay поверх исходного изображения
	Annotate(imageData []byte, set *entity.DetectionSet, result *entity.MeasurementResult) ([]byte, error)
}

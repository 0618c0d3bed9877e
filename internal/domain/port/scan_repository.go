package port

import (
	"context"

	"leafbot/internal/domain/entity"
)

// ScanRepository интерфейс хранилища истории сканирований
type ScanRepository interface {
	// Save сохраняет результат сканирования и возвращает его идентификатор
	Save(ctx context.Context, scan *entity.ScanLog) (int64, error)

	// Recent возвращает последние limit сканирований чата, новые первыми
	Recent(ctx context.Context, chatID int64, limit int) ([]entity.ScanLog, error)
}

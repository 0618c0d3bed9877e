package entity

import "time"

// ScanLog — запись в истории сканирований.
type ScanLog struct {
	ID           int64
	ChatID       int64   // чат, из которого пришло фото
	LeafCount    int     // сколько листьев измерено
	TotalAreaCM2 float64 // суммарная площадь в см²
	CoinDetected bool    // была ли найдена монета-эталон
	CreatedAt    time.Time
}

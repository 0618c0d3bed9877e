package app

import (
	"context"
	"errors"
	"log"
	"time"

	"leafbot/internal/domain/entity"
	"leafbot/internal/domain/port"
)

// ScanService управляет сценарием сканирования: детекция, измерение,
// аннотация и запись в историю.
type ScanService struct {
	users    *UserService
	detector port.LeafDetector
	measurer *MeasureService
	scans    port.ScanRepository
}

// ScanOutput содержит итог измерения и аннотированную картинку.
type ScanOutput struct {
	Result    *entity.MeasurementResult
	Annotated []byte
}

// NewScanService создаёт сервис, который управляет сканированием листьев.
func NewScanService(users *UserService, detector port.LeafDetector, measurer *MeasureService, scans port.ScanRepository) *ScanService {
	return &ScanService{
		users:    users,
		detector: detector,
		measurer: measurer,
		scans:    scans,
	}
}

// ProcessPhoto запускает детектор, измеряет листья и сохраняет успешный скан.
func (s *ScanService) ProcessPhoto(ctx context.Context, chatID int64, photo []byte) (*ScanOutput, error) {
	if s.detector == nil {
		return nil, errors.New("detector is not configured")
	}

	set, err := s.detector.Detect(ctx, photo)
	if err != nil {
		return nil, err
	}

	result := s.measurer.Measure(set)

	annotated, _ := s.detector.Annotate(photo, set, result)

	// Историю пополняем только успешными измерениями, как и веб-версия.
	// Ошибка записи не отменяет сам результат.
	if result.Success && s.scans != nil {
		scan := &entity.ScanLog{
			ChatID:       chatID,
			LeafCount:    result.LeafCount(),
			TotalAreaCM2: result.TotalAreaCM2(),
			CoinDetected: result.ReferenceDetected,
			CreatedAt:    time.Now(),
		}
		if _, err := s.scans.Save(ctx, scan); err != nil {
			log.Printf("Error saving scan log: %v", err)
		}
	}

	return &ScanOutput{Result: result, Annotated: annotated}, nil
}

// History возвращает последние сканирования чата, новые первыми.
func (s *ScanService) History(ctx context.Context, chatID int64, limit int) ([]entity.ScanLog, error) {
	if s.scans == nil {
		return nil, errors.New("scan repository is not configured")
	}
	return s.scans.Recent(ctx, chatID, limit)
}

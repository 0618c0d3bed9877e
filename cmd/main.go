package main

import (
	"log"

	"leafbot/config"
	telegram "leafbot/internal/api"
	app "leafbot/internal/application"
	"leafbot/internal/container"
	"leafbot/internal/infrastructure/storage"
	"leafbot/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	// Создаём хранилище пользователей
	userRepo := storage.NewMemoryUserRepository()

	// Открываем базу с историей сканирований
	scanRepo, err := storage.NewSQLiteScanRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open scan database: %v", err)
	}
	defer scanRepo.Close()

	// Сегментатор загружается один раз и переиспользуется всеми запросами
	detector := vision.NewLeafSegmenter(cfg.ReferenceLabel, cfg.TargetLabel)

	measurer := app.NewMeasureService(cfg.ReferenceLabel, cfg.TargetLabel, cfg.CoinKind, cfg.CoinDiameterMM)
	log.Printf("Coin reference: %s, %.1f mm (%.1f mm^2)", cfg.CoinKind, cfg.CoinDiameterMM, measurer.ReferenceAreaMM2())

	// Собираем сервисы приложения
	appContainer := container.New(userRepo, scanRepo, detector, measurer)

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.UserService, appContainer.ScanService)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	log.Println("Bot is running...")
	if err := bot.Run(); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken  string  // токен бота
	DBPath         string  // путь к файлу SQLite с историей сканирований
	CoinDiameterMM float64 // диаметр монеты-эталона в мм
	CoinKind       string  // описание монеты для отчёта
	ReferenceLabel string  // метка класса эталона у детектора
	TargetLabel    string  // метка класса измеряемых объектов
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		DBPath:         getEnv("DB_PATH", "leafbot.db"),
		CoinDiameterMM: getEnvFloat("COIN_DIAMETER_MM", 27.2), // алюминиевые 500 IDR
		CoinKind:       getEnv("COIN_KIND", "500 IDR"),
		ReferenceLabel: getEnv("REFERENCE_LABEL", "coin"),
		TargetLabel:    getEnv("TARGET_LABEL", "leaf"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

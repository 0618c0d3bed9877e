package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"leafbot/internal/domain/entity"
	"leafbot/internal/domain/port"
)

// SQLiteScanRepository хранит историю сканирований в SQLite
type SQLiteScanRepository struct {
	db *sql.DB
}

// NewSQLiteScanRepository открывает базу и создаёт таблицу, если её нет
func NewSQLiteScanRepository(path string) (*SQLiteScanRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Один писатель достаточен для бота на long polling.
	db.SetMaxOpenConns(1)

	repo := &SQLiteScanRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteScanRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		leaf_count INTEGER NOT NULL,
		total_area_cm2 REAL NOT NULL,
		coin_detected INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_logs_chat_created
		ON scan_logs (chat_id, created_at DESC);`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// Save сохраняет результат сканирования и возвращает его идентификатор
func (r *SQLiteScanRepository) Save(ctx context.Context, scan *entity.ScanLog) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_logs (chat_id, leaf_count, total_area_cm2, coin_detected, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, scan.ChatID, scan.LeafCount, scan.TotalAreaCM2, scan.CoinDetected, scan.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert scan log: %w", err)
	}

	return result.LastInsertId()
}

// Recent возвращает последние limit сканирований чата, новые первыми
func (r *SQLiteScanRepository) Recent(ctx context.Context, chatID int64, limit int) ([]entity.ScanLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, leaf_count, total_area_cm2, coin_detected, created_at
		FROM scan_logs WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan logs: %w", err)
	}
	defer rows.Close()

	var scans []entity.ScanLog
	for rows.Next() {
		var scan entity.ScanLog
		if err := rows.Scan(&scan.ID, &scan.ChatID, &scan.LeafCount, &scan.TotalAreaCM2, &scan.CoinDetected, &scan.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, scan)
	}

	return scans, rows.Err()
}

// Close закрывает соединение с базой
func (r *SQLiteScanRepository) Close() error {
	return r.db.Close()
}

// Проверка реализации интерфейса
var _ port.ScanRepository = (*SQLiteScanRepository)(nil)

package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "leafbot/internal/application"
	"leafbot/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для измерения площади листьев по фотографии.

📸 Положите рядом с листьями монету 500 IDR и отправьте мне фото —
я откалибруюсь по монете и посчитаю реальную площадь каждого листа.

📋 Команды:
/scan — измерить листья
/history — последние измерения
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Положите монету 500 IDR на один уровень с листьями
2️⃣ Сфотографируйте сверху и отправьте фото
3️⃣ Вы получите площадь каждого листа и фото с разметкой

💡 Рекомендации:
• Снимайте строго сверху при хорошем освещении
• Монета не должна перекрывать листья
• Используйте однотонный фон

📋 Команды:
/scan — измерить листья
/history — последние измерения
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото листьев с монетой-эталоном."
	msgCancelled       = "❌ Операция отменена. Отправьте /scan для нового измерения."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото листьев с монетой для измерения."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Измеряю площадь листьев..."
	msgNoHistory       = "📭 История пуста. Отправьте /scan, чтобы сделать первое измерение."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
)

// Bot представляет Telegram-бота
type Bot struct {
	api   *tgbotapi.BotAPI
	users *app.UserService
	scans *app.ScanService
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, scans *app.ScanService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:   api,
		users: users,
		scans: scans,
	}, nil
}

// Run запускает основной цикл обработки сообщений
func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	ctx := context.Background()

	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.handleMessage(ctx, update.Message)
	}

	return nil
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото
	if msg.Photo != nil && len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, user)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		b.users.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "scan":
		b.users.BeginScan(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "history":
		b.handleHistory(ctx, msg.Chat.ID)

	case "cancel":
		b.users.Cancel(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	// Устанавливаем состояние "обработка"
	b.users.SetState(ctx, user.ID, user.ChatID, entity.StateProcessing)

	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(photo.FileID)
	if err != nil {
		log.Printf("Error downloading photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		b.users.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu)
		return
	}

	output, err := b.scans.ProcessPhoto(ctx, msg.Chat.ID, imageData)
	if err != nil {
		log.Printf("Error processing photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		b.users.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu)
		return
	}

	b.sendMessage(msg.Chat.ID, formatResult(output.Result))

	if len(output.Annotated) > 0 {
		b.sendPhoto(msg.Chat.ID, output.Annotated)
	}

	// Возвращаем в главное меню
	b.users.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu)
}

// handleHistory показывает последние измерения чата
func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	scans, err := b.scans.History(ctx, chatID, 5)
	if err != nil {
		log.Printf("Error loading history: %v", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	if len(scans) == 0 {
		b.sendMessage(chatID, msgNoHistory)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Последние измерения:\n")
	for _, scan := range scans {
		sb.WriteString(fmt.Sprintf("\n• %s — %d лист., %.2f см²",
			scan.CreatedAt.Format("02.01.2006 15:04"), scan.LeafCount, scan.TotalAreaCM2))
	}

	b.sendMessage(chatID, sb.String())
}

// formatResult строит текстовый отчёт по результату измерения.
func formatResult(result *entity.MeasurementResult) string {
	if !result.Success {
		if !result.ReferenceDetected {
			return "🪙 Монета-эталон не найдена на фото — без неё посчитать реальную площадь нельзя.\n" +
				"Положите монету рядом с листьями и попробуйте ещё раз."
		}
		return "⚠️ Монета найдена, но её контур не удалось измерить. Попробуйте сделать другое фото."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍃 Листьев найдено: %d\n", result.LeafCount()))
	sb.WriteString(fmt.Sprintf("📐 Общая площадь: %.2f см² (%.1f мм²)\n", result.TotalAreaCM2(), result.TotalAreaMM2))

	for _, m := range result.Measurements {
		sb.WriteString(fmt.Sprintf("   • Лист %d: %.2f см²\n", m.Index, m.AreaMM2/100))
	}

	sb.WriteString(fmt.Sprintf("🪙 Эталон: %s, %.1f мм (%.1f мм²)",
		result.ReferenceKind, result.ReferenceDiameterMM, result.ReferenceAreaMM2))

	return sb.String()
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// sendPhoto отправляет аннотированное изображение
func (b *Bot) sendPhoto(chatID int64, data []byte) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "segmented.jpg", Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("Error sending photo: %v", err)
	}
}

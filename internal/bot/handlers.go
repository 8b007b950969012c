package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/omarshaarawi/bracketbot/internal/export"
	"github.com/omarshaarawi/bracketbot/internal/kenpom"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const (
	helpText = "Available commands:\n" +
		"/tournaments - List tournaments\n" +
		"/tournament <id> - Select a tournament\n" +
		"/brackets [value|chalk|chaos] - List generated brackets\n" +
		"/stats - Strategy breakdown\n" +
		"/generate [count] - Generate brackets (default %d)\n" +
		"/delete - Delete all brackets\n" +
		"/export <text|csv|json> - Download an export\n" +
		"/bracket <id> - Download a single bracket\n" +
		"/champion <team> - Brackets picking a champion\n" +
		"/kenpom - Top KenPom ratings\n\n" +
		"Send a KenPom .csv file (year in the file name) to upload it."

	kenpomTop = 15
)

// FileFetcher downloads a file the chat sent to the bot.
type FileFetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

type Handler struct {
	service       *service.BracketService
	queue         *kenpom.Queue
	files         FileFetcher
	generateCount int
}

func NewHandler(bracketService *service.BracketService, queue *kenpom.Queue, files FileFetcher, generateCount int) *Handler {
	return &Handler{
		service:       bracketService,
		queue:         queue,
		files:         files,
		generateCount: generateCount,
	}
}

// HandleCommand answers a command with either a text message or a document.
func (h *Handler) HandleCommand(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	chatID := update.Message.Chat.ID
	msg := tgbotapi.NewMessage(chatID, "")
	command := strings.ToLower(update.Message.Command())
	args := strings.TrimSpace(update.Message.CommandArguments())
	msg.ParseMode = "Markdown"

	switch command {
	case "start":
		msg.Text = "Welcome to BracketBot! Use /help to see available commands."
	case "help":
		msg.Text = fmt.Sprintf(helpText, h.generateCount)
		msg.ParseMode = ""
	case "tournaments":
		h.handleTournaments(ctx, &msg)
	case "tournament":
		h.handleSelectTournament(ctx, &msg, args)
	case "brackets":
		h.handleBrackets(ctx, &msg, args)
	case "stats":
		h.handleStats(ctx, &msg)
	case "generate":
		h.handleGenerate(ctx, &msg, args)
	case "delete":
		h.handleDelete(ctx, &msg)
	case "export":
		return h.handleExport(ctx, msg, args)
	case "bracket":
		return h.handleBracket(ctx, msg, args)
	case "champion":
		h.handleChampion(ctx, &msg, args)
	case "kenpom":
		h.handleKenPom(ctx, &msg)
	default:
		msg.Text = "Unknown command. Use /help to see available commands."
	}

	return msg
}

func (h *Handler) handleTournaments(ctx context.Context, msg *tgbotapi.MessageConfig) {
	tournaments, err := h.service.Tournaments(ctx)
	if err != nil {
		msg.Text = fmt.Sprintf("Error fetching tournaments: %v", err)
		return
	}
	msg.Text = service.FormatTournaments(tournaments, h.service.API().ID())
}

func (h *Handler) handleSelectTournament(ctx context.Context, msg *tgbotapi.MessageConfig, args string) {
	if args == "" {
		tournament, err := h.service.CurrentTournament(ctx)
		if err != nil {
			msg.Text = fmt.Sprintf("Error fetching tournament: %v", err)
			return
		}
		msg.Text = service.FormatTournament(tournament)
		return
	}

	id, err := strconv.Atoi(args)
	if err != nil || id <= 0 {
		msg.Text = "Please provide a tournament id. Usage: /tournament <id>"
		return
	}
	tournament, err := h.service.SelectTournament(ctx, id)
	if err != nil {
		msg.Text = fmt.Sprintf("❌ Could not select tournament %d", id)
		return
	}
	msg.Text = service.FormatTournament(tournament)
}

func (h *Handler) handleBrackets(ctx context.Context, msg *tgbotapi.MessageConfig, args string) {
	brackets, err := h.service.Brackets(ctx, args)
	if errors.Is(err, service.ErrUnknownStrategy) {
		msg.Text = "Unknown strategy. Usage: /brackets [value|chalk|chaos]"
		return
	}
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionLoad, err)
		return
	}
	msg.Text = service.FormatBrackets(brackets, args)
}

func (h *Handler) handleStats(ctx context.Context, msg *tgbotapi.MessageConfig) {
	stats, err := h.service.StrategyStats(ctx)
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionLoad, err)
		return
	}
	msg.Text = service.FormatStats(stats)
}

func (h *Handler) handleGenerate(ctx context.Context, msg *tgbotapi.MessageConfig, args string) {
	count := h.generateCount
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			msg.Text = "Please provide a positive count. Usage: /generate [count]"
			return
		}
		count = n
	}

	result, err := h.service.Generate(ctx, count)
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionGenerate, err)
		return
	}
	msg.Text = service.FormatGenerateResult(result, count)
}

func (h *Handler) handleDelete(ctx context.Context, msg *tgbotapi.MessageConfig) {
	_, err := h.service.DeleteAll(ctx)
	msg.Text = service.StatusMessage(service.ActionDelete, err)
}

func (h *Handler) handleExport(ctx context.Context, msg tgbotapi.MessageConfig, args string) tgbotapi.Chattable {
	if args == "" {
		msg.Text = "Please provide a format. Usage: /export <text|csv|json>"
		return msg
	}
	format, err := export.ParseFormat(args)
	if err != nil {
		msg.Text = "Unknown format. Usage: /export <text|csv|json>"
		return msg
	}

	file, err := h.service.Export(ctx, format)
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionExport, err)
		return msg
	}
	return document(msg.ChatID, file)
}

func (h *Handler) handleBracket(ctx context.Context, msg tgbotapi.MessageConfig, args string) tgbotapi.Chattable {
	id, err := strconv.Atoi(strings.TrimPrefix(args, "#"))
	if err != nil {
		msg.Text = "Please provide a bracket number. Usage: /bracket <id>"
		return msg
	}

	file, err := h.service.ExportBracket(ctx, id)
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionExport, err)
		return msg
	}
	return document(msg.ChatID, file)
}

func (h *Handler) handleChampion(ctx context.Context, msg *tgbotapi.MessageConfig, args string) {
	if args == "" {
		msg.Text = "Please provide a team name. Usage: /champion <team>"
		return
	}

	champion, picks, err := h.service.FindByChampion(ctx, args)
	if errors.Is(err, service.ErrChampionNotFound) {
		msg.Text = fmt.Sprintf("No bracket picks %s as champion.", args)
		msg.ParseMode = ""
		return
	}
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionLoad, err)
		return
	}

	stats, err := h.service.StrategyStats(ctx)
	if err != nil {
		msg.Text = service.StatusMessage(service.ActionLoad, err)
		return
	}
	msg.Text = service.FormatChampionPicks(champion, picks, stats.Total)
}

func (h *Handler) handleKenPom(ctx context.Context, msg *tgbotapi.MessageConfig) {
	entries, err := h.service.KenPom(ctx)
	if err != nil {
		msg.Text = fmt.Sprintf("Error fetching KenPom ratings: %v", err)
		return
	}
	msg.Text = service.FormatKenPom(entries, kenpomTop)
}

// HandleDocument runs a .csv the chat sent through the KenPom upload queue.
func (h *Handler) HandleDocument(ctx context.Context, update tgbotapi.Update) tgbotapi.Chattable {
	doc := update.Message.Document
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
	msg.ParseMode = "Markdown"

	if len(kenpom.FilterCSV([]string{strings.ToLower(doc.FileName)})) == 0 {
		msg.Text = "Only KenPom .csv files can be uploaded."
		return msg
	}

	data, err := h.files.Fetch(ctx, doc.FileID)
	if err != nil {
		slog.Error("Error downloading document", "file", doc.FileName, "error", err)
		msg.Text = service.StatusMessage(service.ActionUpload, err)
		return msg
	}

	report := h.queue.UploadAll(ctx, []kenpom.File{kenpom.BytesFile(filepath.Base(doc.FileName), data)})
	msg.Text = service.FormatUploadReport(report)
	return msg
}

func document(chatID int64, file export.File) tgbotapi.DocumentConfig {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: file.Name, Bytes: file.Data})
	doc.Caption = service.StatusMessage(service.ActionExport, nil) + ": " + file.Name
	return doc
}

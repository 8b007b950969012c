package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarshaarawi/bracketbot/internal/api/madness"
	"github.com/omarshaarawi/bracketbot/internal/api/tournament"
	"github.com/omarshaarawi/bracketbot/internal/config"
	"github.com/omarshaarawi/bracketbot/internal/kenpom"
	"github.com/omarshaarawi/bracketbot/internal/repository/memory"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const chatID = 4242

type fakeFetcher struct {
	data []byte
	err  error
}

func (f fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

type backend struct {
	failBrackets atomic.Bool
	uploads      atomic.Int32
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/tournament/1":
		_, _ = w.Write([]byte(`{"id":1,"year":2025,"bracket_structure":{"regions":{"East":[{"seed":1,"name":"Duke","region":"East"}]}}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/tournament/1/brackets":
		if b.failBrackets.Load() {
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[
  {"id":1,"strategy":"value","champion":"Houston","final_four":["Auburn","Florida","Duke","Houston"],"expected_score":131.5,"upset_count":12,"pool_tag":"espn","picks":{"championship":["Duke","Houston"]}},
  {"id":2,"strategy":"chalk","champion":"Duke","final_four":["Auburn","Florida","Duke","Houston"],"expected_score":150,"upset_count":4,"pool_tag":"yahoo","picks":{"championship":["Duke","Houston"]}}
]`))
	case r.Method == http.MethodPost && r.URL.Path == "/tournament/1/kenpom":
		b.uploads.Add(1)
		_, _ = w.Write([]byte(`{"message":"Uploaded","entries":[{"team_name":"Duke"},{"team_name":"Houston"}]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/tournament/1/generate":
		http.Error(w, `{"detail":"No KenPom data"}`, http.StatusBadRequest)
	default:
		http.NotFound(w, r)
	}
}

func newTestHandler(t *testing.T, files FileFetcher) (*Handler, *backend) {
	t.Helper()
	b := &backend{}
	upstream := httptest.NewServer(b)
	t.Cleanup(upstream.Close)

	client := madness.NewClient(config.BracketAPI{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	api := tournament.NewAPI(madness.NewAPI(client), 1)
	svc := service.NewBracketService(api, memory.NewRepository(), service.Options{Year: 2025, GenerateCount: 200})
	return NewHandler(svc, kenpom.NewQueue(api), files, 200), b
}

func command(text string) tgbotapi.Update {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func documentUpdate(name string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: "file-1", FileName: name},
	}}
}

func text(t *testing.T, c tgbotapi.Chattable) string {
	t.Helper()
	msg, ok := c.(tgbotapi.MessageConfig)
	require.True(t, ok, "expected a text message, got %T", c)
	assert.Equal(t, int64(chatID), msg.ChatID)
	return msg.Text
}

func TestStatsCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out := text(t, h.HandleCommand(context.Background(), command("/stats")))
	assert.Contains(t, out, "(2 brackets)")
	assert.Contains(t, out, "VALUE: 1")
	assert.Contains(t, out, "CHAOS: 0")
}

func TestBracketsCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out := text(t, h.HandleCommand(context.Background(), command("/brackets chalk")))
	assert.Contains(t, out, "CHALK Brackets* (1)")
	assert.Contains(t, out, "#2 CHALK")

	out = text(t, h.HandleCommand(context.Background(), command("/brackets nope")))
	assert.Contains(t, out, "Unknown strategy")
}

func TestExportCommandSendsDocument(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	reply := h.HandleCommand(context.Background(), command("/export csv"))
	doc, ok := reply.(tgbotapi.DocumentConfig)
	require.True(t, ok, "expected a document, got %T", reply)
	assert.Equal(t, int64(chatID), doc.ChatID)

	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "march_madness_2025_summary.csv", file.Name)
	assert.Contains(t, string(file.Bytes), "Bracket_ID,Strategy")
}

func TestExportCommandRefetchFailure(t *testing.T) {
	h, b := newTestHandler(t, nil)
	b.failBrackets.Store(true)

	out := text(t, h.HandleCommand(context.Background(), command("/export json")))
	assert.Contains(t, out, "could not be re-fetched")
}

func TestExportCommandUsage(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	assert.Contains(t, text(t, h.HandleCommand(context.Background(), command("/export"))), "Usage")
	assert.Contains(t, text(t, h.HandleCommand(context.Background(), command("/export pdf"))), "Unknown format")
}

func TestBracketCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	reply := h.HandleCommand(context.Background(), command("/bracket #1"))
	doc, ok := reply.(tgbotapi.DocumentConfig)
	require.True(t, ok, "expected a document, got %T", reply)
	assert.Equal(t, "march_madness_2025_bracket_1.txt", doc.File.(tgbotapi.FileBytes).Name)

	assert.Equal(t, "❌ No bracket with that number.", text(t, h.HandleCommand(context.Background(), command("/bracket 9"))))
}

func TestGenerateCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	assert.Contains(t, text(t, h.HandleCommand(context.Background(), command("/generate lots"))), "Usage")
	assert.Equal(t,
		"❌ Generation failed. Make sure KenPom data is uploaded.",
		text(t, h.HandleCommand(context.Background(), command("/generate 10"))))
}

func TestChampionCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out := text(t, h.HandleCommand(context.Background(), command("/champion houston")))
	assert.Contains(t, out, "Houston")
	assert.Contains(t, out, "Champion in 1 of 2 brackets (50.0%)")
}

func TestTournamentCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out := text(t, h.HandleCommand(context.Background(), command("/tournament")))
	assert.Contains(t, out, "2025 Tournament")
	assert.Contains(t, out, "*East*: 1 teams (top seed: Duke)")
}

func TestUnknownCommand(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	assert.Contains(t, text(t, h.HandleCommand(context.Background(), command("/bogus"))), "Unknown command")
}

func TestDocumentUpload(t *testing.T) {
	h, b := newTestHandler(t, fakeFetcher{data: []byte("Team,AdjEM\nDuke,30.1\n")})

	out := text(t, h.HandleDocument(context.Background(), documentUpdate("kenpom_2025.csv")))
	assert.Contains(t, out, "1 uploaded, 0 failed, 0 skipped")
	assert.Contains(t, out, "2025: 2 teams")
	assert.Equal(t, int32(1), b.uploads.Load())
}

func TestDocumentWithoutYearIsSkipped(t *testing.T) {
	h, b := newTestHandler(t, fakeFetcher{data: []byte("Team\n")})

	out := text(t, h.HandleDocument(context.Background(), documentUpdate("ratings.csv")))
	assert.Contains(t, out, "0 uploaded, 0 failed, 1 skipped")
	assert.Zero(t, b.uploads.Load())
}

func TestDocumentRejectsNonCSV(t *testing.T) {
	h, b := newTestHandler(t, fakeFetcher{})

	out := text(t, h.HandleDocument(context.Background(), documentUpdate("kenpom_2025.xlsx")))
	assert.Contains(t, out, "Only KenPom .csv files")
	assert.Zero(t, b.uploads.Load())
}

func TestDocumentDownloadFailure(t *testing.T) {
	h, _ := newTestHandler(t, fakeFetcher{err: errors.New("telegram down")})

	out := text(t, h.HandleDocument(context.Background(), documentUpdate("kenpom_2024.csv")))
	assert.Equal(t, "❌ Upload failed. Check CSV format.", out)
}

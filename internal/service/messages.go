package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/omarshaarawi/bracketbot/internal/kenpom"
	"github.com/omarshaarawi/bracketbot/internal/models"
)

const maxListed = 25

type Action string

const (
	ActionGenerate Action = "generate"
	ActionDelete   Action = "delete"
	ActionLoad     Action = "load"
	ActionExport   Action = "export"
	ActionUpload   Action = "upload"
)

// StatusMessage turns the outcome of a user action into a one-line message.
func StatusMessage(action Action, err error) string {
	if errors.Is(err, ErrRequestInFlight) {
		return fmt.Sprintf("⏳ A %s request is already running. Wait for it to finish.", action)
	}

	switch action {
	case ActionGenerate:
		if err != nil {
			return "❌ Generation failed. Make sure KenPom data is uploaded."
		}
		return "✅ Brackets generated!"
	case ActionDelete:
		if err != nil {
			return "❌ Delete failed"
		}
		return "✅ Deleted all brackets"
	case ActionLoad:
		if err != nil {
			return "❌ Could not load brackets. Is the bracket service running?"
		}
		return "✅ Brackets loaded"
	case ActionExport:
		switch {
		case errors.Is(err, ErrExportRefetch):
			return "❌ Export failed: full bracket data could not be re-fetched. Nothing was downloaded, try again."
		case errors.Is(err, ErrBracketNotFound):
			return "❌ No bracket with that number."
		case err != nil:
			return "❌ Export failed. Try again."
		}
		return "✅ Export ready"
	case ActionUpload:
		if err != nil {
			return "❌ Upload failed. Check CSV format."
		}
		return "✅ Upload complete"
	}

	if err != nil {
		return fmt.Sprintf("❌ %s failed", action)
	}
	return "✅ Done"
}

// escapeMarkdown escapes Telegram legacy Markdown control characters.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

func FormatGenerateResult(result *models.GenerateResult, count int) string {
	if result != nil && result.Message != "" {
		return "✅ " + escapeMarkdown(result.Message) + "!"
	}
	return fmt.Sprintf("✅ Successfully generated %d brackets!", count)
}

func FormatTournaments(tournaments []models.Tournament, selected int) string {
	var sb strings.Builder
	sb.WriteString("🏀 *Tournaments*\n\n")

	if len(tournaments) == 0 {
		sb.WriteString("No tournaments yet.")
		return sb.String()
	}

	for _, t := range tournaments {
		marker := "▫️"
		if t.ID == selected {
			marker = "▪️"
		}
		sb.WriteString(fmt.Sprintf("%s #%d - %d (%d teams)\n", marker, t.ID, t.Year, t.TeamCount()))
	}
	return sb.String()
}

func FormatTournament(t *models.Tournament) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏀 *%d Tournament* (#%d)\n\n", t.Year, t.ID))
	for _, region := range models.Regions {
		teams := t.BracketStructure.Regions[region]
		if len(teams) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*: %d teams (top seed: %s)\n", region, len(teams), escapeMarkdown(teams[0].Name)))
	}
	return sb.String()
}

func FormatBrackets(brackets []models.GeneratedBracket, strategy string) string {
	var sb strings.Builder

	title := "All Brackets"
	if strategy != "" && strategy != "all" {
		title = strings.ToUpper(strategy) + " Brackets"
	}
	sb.WriteString(fmt.Sprintf("📋 *%s* (%d)\n\n", title, len(brackets)))

	if len(brackets) == 0 {
		sb.WriteString("No brackets generated yet. Use /generate to create some.")
		return sb.String()
	}

	for i, b := range brackets {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("\n...and %d more. Use /export for the full list.", len(brackets)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("#%d %s • 🏆 %s • %s pts • %d upsets\n",
			b.ID,
			strings.ToUpper(string(b.Strategy)),
			escapeMarkdown(b.Champion),
			formatScore(b.ExpectedScore),
			b.UpsetCount))
	}
	return sb.String()
}

func FormatStats(stats models.StrategyStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *Strategy Breakdown* (%d brackets)\n\n", stats.Total))
	for _, st := range models.Strategies {
		sb.WriteString(fmt.Sprintf("%s: %d\n", strings.ToUpper(string(st)), stats.Counts[st]))
	}
	return sb.String()
}

// FormatChampionPicks lists how often a champion was picked and by which brackets.
func FormatChampionPicks(champion string, picks []models.GeneratedBracket, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 *%s*\n", escapeMarkdown(champion)))
	pct := 0.0
	if total > 0 {
		pct = float64(len(picks)) / float64(total) * 100
	}
	sb.WriteString(fmt.Sprintf("Champion in %d of %d brackets (%.1f%%)\n\n", len(picks), total, pct))

	stats := CountStrategies(picks)
	for _, st := range models.Strategies {
		if stats.Counts[st] > 0 {
			sb.WriteString(fmt.Sprintf("%s: %d\n", strings.ToUpper(string(st)), stats.Counts[st]))
		}
	}
	return sb.String()
}

// FormatKenPom lists the top n teams by adjusted efficiency margin.
func FormatKenPom(entries []models.KenPomEntry, n int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📈 *KenPom Ratings* (%d teams)\n\n", len(entries)))

	if len(entries) == 0 {
		sb.WriteString("No KenPom data uploaded yet. Send a .csv file to upload one.")
		return sb.String()
	}

	for i, e := range TopKenPom(entries, n) {
		sb.WriteString(fmt.Sprintf("%d. %s  AdjEM %.2f (O %.1f / D %.1f, T %.1f)\n",
			i+1, escapeMarkdown(e.TeamName), e.AdjEM, e.AdjO, e.AdjD, e.Tempo))
	}
	return sb.String()
}

// TopKenPom returns the n best teams by adjusted efficiency margin, best first.
func TopKenPom(entries []models.KenPomEntry, n int) []models.KenPomEntry {
	sorted := make([]models.KenPomEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AdjEM > sorted[j].AdjEM
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func FormatUploadReport(report kenpom.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📤 *KenPom Upload*: %d uploaded, %d failed, %d skipped\n\n",
		report.Uploaded, report.Failed, len(report.Skipped)))

	for _, s := range report.Statuses {
		switch s.State {
		case kenpom.StateSuccess:
			sb.WriteString(fmt.Sprintf("✅ %d: %d teams\n", s.Year, s.TeamCount))
		case kenpom.StateFailed:
			sb.WriteString(fmt.Sprintf("❌ %d: %s\n", s.Year, s.Error))
		}
	}
	for _, name := range report.Skipped {
		sb.WriteString(fmt.Sprintf("⚠️ %s: no year in file name, skipped\n", escapeMarkdown(name)))
	}
	return sb.String()
}

func formatScore(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

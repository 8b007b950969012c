package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

const lineWidth = 80

// TimestampLayout is used for the "Generated:" line of the readable report.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

var (
	heavyRule = strings.Repeat("=", lineWidth)
	lightRule = strings.Repeat("-", lineWidth)
)

// Readable renders every bracket as a plain-text report meant for typing picks into pool sites.
func Readable(brackets []models.GeneratedBracket, year int, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("MARCH MADNESS %d - GENERATED BRACKETS\n", year))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", generatedAt.Format(TimestampLayout)))
	sb.WriteString(fmt.Sprintf("Total Brackets: %d\n", len(brackets)))
	sb.WriteString(fmt.Sprintf("\n%s\n\n", heavyRule))

	for _, b := range brackets {
		sb.WriteString(BracketText(b))
	}
	return sb.String()
}

// BracketText renders a single bracket block, trailing blank block included.
func BracketText(b models.GeneratedBracket) string {
	var picks models.Picks
	if b.Picks != nil {
		picks = *b.Picks
	}

	out := []string{
		heavyRule,
		fmt.Sprintf("BRACKET #%d - %s STRATEGY", b.ID, strings.ToUpper(string(b.Strategy))),
		heavyRule,
		"Expected Score: " + formatNumber(b.ExpectedScore),
		"Upset Count: " + strconv.Itoa(b.UpsetCount),
		"Pool Tag: " + b.PoolTag,
		"Champion: " + b.Champion,
		"",
	}

	out = append(out, section("FINAL FOUR")...)
	for i, team := range b.FinalFour {
		out = append(out, fmt.Sprintf("  %d. %s", i+1, team))
	}
	out = append(out, "")

	if picks.Championship != nil {
		out = append(out, section("CHAMPIONSHIP GAME")...)
		if len(picks.Championship) >= 2 {
			out = append(out, fmt.Sprintf("  %s vs %s", picks.Championship[0], picks.Championship[1]))
			out = append(out, "  WINNER: "+b.Champion)
		}
		out = append(out, "")
	}

	// Elite 8 keeps backend order; the earlier rounds are sorted by game key.
	out = appendRound(out, "ELITE 8 (Regional Championships)", picks.Elite8)
	out = appendRound(out, "SWEET 16", picks.Sweet16.Sorted())
	out = appendRound(out, "ROUND OF 32", picks.Round32.Sorted())
	out = appendRound(out, "ROUND OF 64 (First Round)", picks.Round64.Sorted())

	out = append(out, "\n\n")
	return strings.Join(out, "\n")
}

func section(title string) []string {
	return []string{lightRule, title, lightRule}
}

func appendRound(out []string, title string, round models.RoundPicks) []string {
	if round == nil {
		return out
	}
	out = append(out, section(title)...)
	for _, p := range round {
		out = append(out, fmt.Sprintf("  %s: %s", p.Game, p.Winner))
	}
	return append(out, "")
}

// formatNumber prints the shortest decimal that round-trips, so 120 stays "120" and 142.5 stays "142.5".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

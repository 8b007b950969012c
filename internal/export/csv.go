package export

import (
	"strconv"
	"strings"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

var csvHeader = []string{
	"Bracket_ID", "Strategy", "Pool_Tag", "Champion",
	"Final_Four_1", "Final_Four_2", "Final_Four_3", "Final_Four_4",
	"Expected_Score", "Upset_Count",
}

// CSV renders the summary table. Fields are joined verbatim with no quoting;
// pool tags and team names are expected to be comma free.
func CSV(brackets []models.GeneratedBracket) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(csvHeader, ","))
	sb.WriteString("\n")

	for _, b := range brackets {
		row := []string{
			strconv.Itoa(b.ID),
			string(b.Strategy),
			b.PoolTag,
			b.Champion,
			finalFourSlot(b.FinalFour, 0),
			finalFourSlot(b.FinalFour, 1),
			finalFourSlot(b.FinalFour, 2),
			finalFourSlot(b.FinalFour, 3),
			formatNumber(b.ExpectedScore),
			strconv.Itoa(b.UpsetCount),
		}
		sb.WriteString(strings.Join(row, ","))
		sb.WriteString("\n")
	}
	return sb.String()
}

func finalFourSlot(teams []string, i int) string {
	if i < len(teams) {
		return teams[i]
	}
	return ""
}

package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

func decodeBrackets(t *testing.T, body string) []models.GeneratedBracket {
	t.Helper()
	var brackets []models.GeneratedBracket
	require.NoError(t, json.Unmarshal([]byte(body), &brackets))
	return brackets
}

const fullRecords = `[
  {
    "id": 12,
    "strategy": "chaos",
    "champion": "Houston",
    "final_four": ["Auburn", "Florida", "Duke", "Houston"],
    "expected_score": 131.25,
    "upset_count": 17,
    "pool_tag": "family",
    "picks": {
      "round_64": {"R64_East_2": "Alabama", "R64_East_1": "Duke", "R64_East_10": "Oregon"},
      "round_32": {"R32_b": "Duke", "R32_a": "Auburn"},
      "sweet_16": {"S16_z": "Florida", "S16_m": "Auburn"},
      "elite_8": {"West": "Florida", "East": "Duke", "South": "Auburn", "Midwest": "Houston"},
      "championship": ["Duke", "Houston"]
    }
  },
  {
    "id": 13,
    "strategy": "chalk",
    "champion": "Duke",
    "final_four": ["Auburn", "Florida", "Duke", "Houston"],
    "expected_score": 150,
    "upset_count": 4,
    "pool_tag": "office"
  }
]`

func TestBracketTextChampionship(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	text := BracketText(brackets[0])

	assert.Contains(t, text, "CHAMPIONSHIP GAME\n"+lightRule+"\n  Duke vs Houston\n  WINNER: Houston\n")
}

func TestBracketTextRoundOrdering(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	text := BracketText(brackets[0])

	elite := strings.Index(text, "  West: Florida\n  East: Duke\n  South: Auburn\n  Midwest: Houston\n")
	assert.Greater(t, elite, 0, "elite 8 must keep backend order")

	assert.Contains(t, text, "  S16_m: Auburn\n  S16_z: Florida\n")
	assert.Contains(t, text, "  R32_a: Auburn\n  R32_b: Duke\n")
	assert.Contains(t, text, "  R64_East_1: Duke\n  R64_East_10: Oregon\n  R64_East_2: Alabama\n")

	order := []string{"FINAL FOUR", "CHAMPIONSHIP GAME", "ELITE 8 (Regional Championships)", "SWEET 16", "ROUND OF 32", "ROUND OF 64 (First Round)"}
	last := -1
	for _, title := range order {
		idx := strings.Index(text, title)
		require.Greater(t, idx, last, "section %s out of order", title)
		last = idx
	}
}

func TestBracketTextLayout(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	text := BracketText(brackets[1])

	want := strings.Join([]string{
		heavyRule,
		"BRACKET #13 - CHALK STRATEGY",
		heavyRule,
		"Expected Score: 150",
		"Upset Count: 4",
		"Pool Tag: office",
		"Champion: Duke",
		"",
		lightRule,
		"FINAL FOUR",
		lightRule,
		"  1. Auburn",
		"  2. Florida",
		"  3. Duke",
		"  4. Houston",
		"",
		"\n\n",
	}, "\n")
	assert.Equal(t, want, text)
}

func TestBracketTextEmptyRoundStillPrinted(t *testing.T) {
	brackets := decodeBrackets(t, `[{"id":1,"strategy":"value","final_four":[],"picks":{"sweet_16":{},"championship":"tbd"}}]`)
	text := BracketText(brackets[0])

	assert.Contains(t, text, "SWEET 16\n"+lightRule+"\n\n")
	assert.Contains(t, text, "CHAMPIONSHIP GAME\n"+lightRule+"\n\n")
	assert.NotContains(t, text, "WINNER:")
	assert.NotContains(t, text, "ROUND OF 32")
}

func TestReadableHeader(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	at := time.Date(2025, time.March, 16, 18, 5, 9, 0, time.UTC)

	text := Readable(brackets, 2025, at)

	assert.True(t, strings.HasPrefix(text, "MARCH MADNESS 2025 - GENERATED BRACKETS\n"+
		"Generated: 3/16/2025, 6:05:09 PM\n"+
		"Total Brackets: 2\n"+
		"\n"+heavyRule+"\n\n"+heavyRule+"\nBRACKET #12 - CHAOS STRATEGY\n"))
	assert.Less(t, strings.Index(text, "BRACKET #12"), strings.Index(text, "BRACKET #13"))
	assert.True(t, strings.HasSuffix(text, "\n\n\n\n"))
}

func TestCSV(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	brackets = append(brackets, models.GeneratedBracket{
		ID: 14, Strategy: models.StrategyValue, PoolTag: "x", Champion: "Duke",
		FinalFour: []string{"Duke", "UNC"}, ExpectedScore: 99.5, UpsetCount: 8,
	})

	out := CSV(brackets)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, len(brackets)+1)
	assert.Equal(t, "Bracket_ID,Strategy,Pool_Tag,Champion,Final_Four_1,Final_Four_2,Final_Four_3,Final_Four_4,Expected_Score,Upset_Count", lines[0])
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 10)
	}
	assert.Equal(t, "12,chaos,family,Houston,Auburn,Florida,Duke,Houston,131.25,17", lines[1])
	assert.Equal(t, "14,value,x,Duke,Duke,UNC,,,99.5,8", lines[3])
}

func TestCSVEmpty(t *testing.T) {
	assert.Equal(t, strings.Join(csvHeader, ",")+"\n", CSV(nil))
}

func TestJSONEnvelope(t *testing.T) {
	brackets := decodeBrackets(t, fullRecords)
	at := time.Date(2025, time.March, 16, 18, 5, 9, 123_000_000, time.FixedZone("CDT", -5*3600))

	data, err := JSON(brackets, 2025, at)
	require.NoError(t, err)

	var env struct {
		TournamentYear int               `json:"tournament_year"`
		GeneratedAt    string            `json:"generated_at"`
		BracketCount   int               `json:"bracket_count"`
		Note           string            `json:"note"`
		Brackets       []json.RawMessage `json:"brackets"`
	}
	require.NoError(t, json.Unmarshal(data, &env))

	assert.Equal(t, 2025, env.TournamentYear)
	assert.Equal(t, "2025-03-16T23:05:09.123Z", env.GeneratedAt)
	assert.Equal(t, len(env.Brackets), env.BracketCount)
	assert.Equal(t, FullDataNote, env.Note)

	var original []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(fullRecords), &original))
	for i := range original {
		assert.JSONEq(t, string(original[i]), string(env.Brackets[i]))
	}
	assert.Contains(t, string(data), "\n  \"tournament_year\": 2025,")
}

func TestJSONKeepsHTMLCharactersLiteral(t *testing.T) {
	brackets := decodeBrackets(t, `[{"id":1,"strategy":"value","champion":"Texas A&M","final_four":["Texas A&M","B","C","D"],"expected_score":101,"upset_count":8,"pool_tag":"<office>"}]`)

	data, err := JSON(brackets, 2025, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"champion": "Texas A&M"`)
	assert.Contains(t, string(data), `"pool_tag": "<office>"`)
	assert.NotContains(t, string(data), `\u0026`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.False(t, strings.HasSuffix(string(data), "\n"))

	env, err := NewEnvelope([]models.GeneratedBracket{{ID: 2, Champion: "Texas A&M"}}, 2025, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(env.Brackets[0]), `"champion":"Texas A&M"`)
}

func TestJSONEnvelopeEmpty(t *testing.T) {
	data, err := JSON(nil, 2024, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bracket_count": 0`)
	assert.Contains(t, string(data), `"brackets": []`)
}

func TestJSONEnvelopeWithoutRaw(t *testing.T) {
	env, err := NewEnvelope([]models.GeneratedBracket{{ID: 5, Champion: "Duke"}}, 2025, time.Now())
	require.NoError(t, err)
	require.Len(t, env.Brackets, 1)
	assert.Contains(t, string(env.Brackets[0]), `"champion":"Duke"`)
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "march_madness_2025_READABLE_BRACKETS.txt", Filename(FormatText, 2025))
	assert.Equal(t, "march_madness_2025_summary.csv", Filename(FormatCSV, 2025))
	assert.Equal(t, "march_madness_2025_full_data.json", Filename(FormatJSON, 2025))
	assert.Equal(t, "march_madness_2025_bracket_7.txt", BracketFilename(2025, 7))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("TXT")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

const (
	FullDataNote = "Full bracket data with all 63 game picks"

	// ISOLayout matches JavaScript's Date.toISOString.
	ISOLayout = "2006-01-02T15:04:05.000Z"
)

type Envelope struct {
	TournamentYear int               `json:"tournament_year"`
	GeneratedAt    string            `json:"generated_at"`
	BracketCount   int               `json:"bracket_count"`
	Note           string            `json:"note"`
	Brackets       []json.RawMessage `json:"brackets"`
}

// NewEnvelope wraps the records exactly as the backend sent them.
func NewEnvelope(brackets []models.GeneratedBracket, year int, generatedAt time.Time) (Envelope, error) {
	raw := make([]json.RawMessage, 0, len(brackets))
	for _, b := range brackets {
		if len(b.Raw) > 0 {
			raw = append(raw, b.Raw)
			continue
		}
		data, err := encode(b, "")
		if err != nil {
			return Envelope{}, fmt.Errorf("encoding bracket %d: %w", b.ID, err)
		}
		raw = append(raw, data)
	}

	return Envelope{
		TournamentYear: year,
		GeneratedAt:    generatedAt.UTC().Format(ISOLayout),
		BracketCount:   len(raw),
		Note:           FullDataNote,
		Brackets:       raw,
	}, nil
}

// JSON renders the full-fidelity envelope with two-space indentation.
func JSON(brackets []models.GeneratedBracket, year int, generatedAt time.Time) ([]byte, error) {
	env, err := NewEnvelope(brackets, year, generatedAt)
	if err != nil {
		return nil, err
	}
	data, err := encode(env, "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export envelope: %w", err)
	}
	return data, nil
}

// encode marshals v without HTML escaping, so "&", "<" and ">" stay literal.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

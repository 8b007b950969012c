package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

type Strategy string

const (
	StrategyValue Strategy = "value"
	StrategyChalk Strategy = "chalk"
	StrategyChaos Strategy = "chaos"
)

var Strategies = []Strategy{StrategyValue, StrategyChalk, StrategyChaos}

func (s Strategy) Valid() bool {
	return slices.Contains(Strategies, s)
}

// GeneratedBracket is a bracket record as served by the generation backend.
// Raw holds the exact object the backend sent so it can be re-emitted verbatim.
type GeneratedBracket struct {
	ID            int             `json:"id"`
	Strategy      Strategy        `json:"strategy"`
	Champion      string          `json:"champion"`
	FinalFour     []string        `json:"final_four"`
	ExpectedScore float64         `json:"expected_score"`
	UpsetCount    int             `json:"upset_count"`
	PoolTag       string          `json:"pool_tag"`
	Picks         *Picks          `json:"picks,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

func (b *GeneratedBracket) UnmarshalJSON(data []byte) error {
	type plain GeneratedBracket
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = GeneratedBracket(p)
	b.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Picks holds every round of a bracket. A nil round was absent from the record.
type Picks struct {
	Round64      RoundPicks  `json:"round_64,omitempty"`
	Round32      RoundPicks  `json:"round_32,omitempty"`
	Sweet16      RoundPicks  `json:"sweet_16,omitempty"`
	Elite8       RoundPicks  `json:"elite_8,omitempty"`
	Championship Contestants `json:"championship,omitempty"`
}

type Pick struct {
	Game   string
	Winner string
}

// RoundPicks is a game-to-winner mapping that keeps the key order of the source JSON.
type RoundPicks []Pick

func (r *RoundPicks) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding round picks: %w", err)
	}

	picks := RoundPicks{}
	switch tok {
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("decoding round picks: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("decoding round picks: unexpected key %v", keyTok)
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("decoding pick %q: %w", key, err)
			}
			picks = append(picks, Pick{Game: key, Winner: rawText(raw)})
		}
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("decoding pick %d: %w", i, err)
			}
			picks = append(picks, Pick{Game: strconv.Itoa(i), Winner: rawText(raw)})
		}
	default:
		return fmt.Errorf("decoding round picks: expected object, got %s", data)
	}

	*r = picks
	return nil
}

func (r RoundPicks) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Game)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Winner)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Sorted returns a copy ordered by game key.
func (r RoundPicks) Sorted() RoundPicks {
	if r == nil {
		return nil
	}
	out := append(RoundPicks{}, r...)
	slices.SortStableFunc(out, func(a, b Pick) int {
		switch {
		case a.Game < b.Game:
			return -1
		case a.Game > b.Game:
			return 1
		}
		return 0
	})
	return out
}

func (r RoundPicks) Winner(game string) (string, bool) {
	for _, p := range r {
		if p.Game == game {
			return p.Winner, true
		}
	}
	return "", false
}

// Contestants is the championship pair. A championship value that is not a
// list decodes to an empty, non-nil Contestants.
type Contestants []string

func (c *Contestants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*c = Contestants{}
		return nil
	}
	out := make(Contestants, 0, len(items))
	for _, item := range items {
		out = append(out, rawText(item))
	}
	*c = out
	return nil
}

func (c Contestants) Contains(team string) bool {
	return slices.Contains(c, team)
}

// rawText renders a JSON scalar the way it reads in a report: strings unquoted,
// everything else as compact JSON text.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

var (
	ErrFinalFourSize     = errors.New("final four must have exactly 4 teams")
	ErrChampionNotInGame = errors.New("champion is not a championship contestant")
)

// ValidateBracket checks the record invariants the backend is expected to uphold.
func ValidateBracket(b GeneratedBracket) error {
	var errs []error
	if len(b.FinalFour) != 4 {
		errs = append(errs, fmt.Errorf("bracket %d: %w (got %d)", b.ID, ErrFinalFourSize, len(b.FinalFour)))
	}
	if b.Picks != nil && b.Picks.Championship != nil && !b.Picks.Championship.Contains(b.Champion) {
		errs = append(errs, fmt.Errorf("bracket %d: %w: %q", b.ID, ErrChampionNotInGame, b.Champion))
	}
	return errors.Join(errs...)
}

type StrategyStats struct {
	Total  int
	Counts map[Strategy]int
}

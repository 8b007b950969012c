package models

import "time"

var Regions = []string{"East", "West", "South", "Midwest"}

type Team struct {
	Seed   int    `json:"seed"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

type BracketStructure struct {
	Year    int               `json:"year"`
	Regions map[string][]Team `json:"regions"`
}

type Tournament struct {
	ID               int              `json:"id"`
	Year             int              `json:"year"`
	BracketStructure BracketStructure `json:"bracket_structure"`
	CreatedAt        string           `json:"created_at"`
}

// TeamCount is the number of seeded teams across all regions.
func (t Tournament) TeamCount() int {
	n := 0
	for _, teams := range t.BracketStructure.Regions {
		n += len(teams)
	}
	return n
}

type TournamentCreate struct {
	Year  int    `json:"year"`
	Teams []Team `json:"teams"`
}

type KenPomEntry struct {
	ID       int     `json:"id"`
	TeamName string  `json:"team_name"`
	AdjEM    float64 `json:"adj_em"`
	AdjO     float64 `json:"adj_o"`
	AdjD     float64 `json:"adj_d"`
	Tempo    float64 `json:"tempo"`
	Year     int     `json:"year,omitempty"`
}

type KenPomUploadResult struct {
	Message string        `json:"message"`
	Entries []KenPomEntry `json:"entries"`
}

type GenerateResult struct {
	Message      string             `json:"message"`
	TournamentID int                `json:"tournament_id"`
	Brackets     []GeneratedBracket `json:"brackets"`
}

type DeleteResult struct {
	Message      string `json:"message"`
	TournamentID int    `json:"tournament_id"`
}

// Session is the client-side view state for the selected tournament.
type Session struct {
	Tournament  *Tournament
	Brackets    []GeneratedBracket
	LastUpdated time.Time
}

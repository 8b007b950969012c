package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

// Repository is the per-process session cache. Records are copied in and out
// so callers can never mutate what is stored.
type Repository struct {
	tournament        *models.Tournament
	tournamentUpdated time.Time
	brackets          []models.GeneratedBracket
	bracketsLoaded    bool
	bracketsUpdated   time.Time
	mu                sync.RWMutex
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) SaveTournament(t *models.Tournament) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		r.tournament = nil
		return
	}
	cp := *t
	r.tournament = &cp
	r.tournamentUpdated = time.Now()
}

// GetTournament returns the cached tournament and when it was stored.
func (r *Repository) GetTournament() (*models.Tournament, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.tournament == nil {
		return nil, time.Time{}
	}
	cp := *r.tournament
	return &cp, r.tournamentUpdated
}

func (r *Repository) SaveBrackets(brackets []models.GeneratedBracket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brackets = slices.Clone(brackets)
	r.bracketsLoaded = true
	r.bracketsUpdated = time.Now()
}

// GetBrackets reports whether a list was ever loaded; an empty loaded list is still loaded.
func (r *Repository) GetBrackets() ([]models.GeneratedBracket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.brackets), r.bracketsLoaded
}

func (r *Repository) BracketsUpdated() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bracketsUpdated
}

// Clear drops everything, as navigating away from a tournament does.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournament = nil
	r.brackets = nil
	r.bracketsLoaded = false
	r.tournamentUpdated = time.Time{}
	r.bracketsUpdated = time.Time{}
}

func (r *Repository) Session() models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := models.Session{
		Brackets:    slices.Clone(r.brackets),
		LastUpdated: r.bracketsUpdated,
	}
	if r.tournament != nil {
		cp := *r.tournament
		s.Tournament = &cp
	}
	return s
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

func TestBracketsAreCopied(t *testing.T) {
	repo := NewRepository()

	_, loaded := repo.GetBrackets()
	assert.False(t, loaded)

	in := []models.GeneratedBracket{{ID: 1, Champion: "Duke"}}
	repo.SaveBrackets(in)
	in[0].Champion = "UNC"

	out, loaded := repo.GetBrackets()
	require.True(t, loaded)
	assert.Equal(t, "Duke", out[0].Champion)

	out[0].Champion = "Kansas"
	again, _ := repo.GetBrackets()
	assert.Equal(t, "Duke", again[0].Champion)
}

func TestEmptyListCountsAsLoaded(t *testing.T) {
	repo := NewRepository()
	repo.SaveBrackets(nil)

	out, loaded := repo.GetBrackets()
	assert.True(t, loaded)
	assert.Empty(t, out)
	assert.False(t, repo.BracketsUpdated().IsZero())
}

func TestTournamentAndClear(t *testing.T) {
	repo := NewRepository()
	repo.SaveTournament(&models.Tournament{ID: 1, Year: 2025})
	repo.SaveBrackets([]models.GeneratedBracket{{ID: 3}})

	tournament, at := repo.GetTournament()
	require.NotNil(t, tournament)
	assert.Equal(t, 2025, tournament.Year)
	assert.False(t, at.IsZero())

	s := repo.Session()
	assert.Equal(t, 1, s.Tournament.ID)
	assert.Len(t, s.Brackets, 1)

	repo.Clear()
	tournament, _ = repo.GetTournament()
	assert.Nil(t, tournament)
	_, loaded := repo.GetBrackets()
	assert.False(t, loaded)
}

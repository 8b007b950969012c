package tournament

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/omarshaarawi/bracketbot/internal/api/madness"
	"github.com/omarshaarawi/bracketbot/internal/models"
)

// API scopes the backend to the currently selected tournament.
type API struct {
	backend *madness.API
	id      atomic.Int64
}

func NewAPI(backend *madness.API, tournamentID int) *API {
	a := &API{backend: backend}
	a.id.Store(int64(tournamentID))
	return a
}

func (a *API) ID() int {
	return int(a.id.Load())
}

// Select rebinds every later call to another tournament.
func (a *API) Select(id int) {
	a.id.Store(int64(id))
}

func (a *API) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	return a.backend.ListTournaments(ctx)
}

func (a *API) Tournament(ctx context.Context) (*models.Tournament, error) {
	return a.backend.GetTournament(ctx, a.ID())
}

func (a *API) Generate(ctx context.Context, count int) (*models.GenerateResult, error) {
	return a.backend.Generate(ctx, a.ID(), count)
}

func (a *API) Brackets(ctx context.Context) ([]models.GeneratedBracket, error) {
	return a.backend.GetBrackets(ctx, a.ID())
}

func (a *API) DeleteBrackets(ctx context.Context) (*models.DeleteResult, error) {
	return a.backend.DeleteBrackets(ctx, a.ID())
}

func (a *API) KenPom(ctx context.Context) ([]models.KenPomEntry, error) {
	return a.backend.GetKenPom(ctx, a.ID())
}

func (a *API) UploadKenPom(ctx context.Context, filename string, content io.Reader) (*models.KenPomUploadResult, error) {
	return a.backend.UploadKenPom(ctx, a.ID(), filename, content)
}

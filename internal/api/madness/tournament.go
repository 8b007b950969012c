package madness

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/omarshaarawi/bracketbot/internal/models"
)

const DefaultGenerateCount = 200

type API struct {
	client *Client
}

func NewAPI(client *Client) *API {
	return &API{client: client}
}

func (a *API) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	if err := a.client.Get(ctx, "/tournaments", nil, &tournaments); err != nil {
		return nil, fmt.Errorf("fetching tournaments: %w", err)
	}
	return tournaments, nil
}

func (a *API) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := a.client.Get(ctx, fmt.Sprintf("/tournament/%d", id), nil, &tournament); err != nil {
		return nil, fmt.Errorf("fetching tournament %d: %w", id, err)
	}
	return &tournament, nil
}

func (a *API) CreateTournament(ctx context.Context, year int, teams []models.Team) (*models.Tournament, error) {
	var tournament models.Tournament
	body := models.TournamentCreate{Year: year, Teams: teams}
	if err := a.client.Post(ctx, "/tournament", nil, body, &tournament); err != nil {
		return nil, fmt.Errorf("creating tournament %d: %w", year, err)
	}
	return &tournament, nil
}

func (a *API) UploadKenPom(ctx context.Context, tournamentID int, filename string, content io.Reader) (*models.KenPomUploadResult, error) {
	var result models.KenPomUploadResult
	endpoint := fmt.Sprintf("/tournament/%d/kenpom", tournamentID)
	if err := a.client.PostFile(ctx, endpoint, "file", filename, content, &result); err != nil {
		return nil, fmt.Errorf("uploading kenpom file %s: %w", filename, err)
	}
	return &result, nil
}

func (a *API) GetKenPom(ctx context.Context, tournamentID int) ([]models.KenPomEntry, error) {
	var entries []models.KenPomEntry
	endpoint := fmt.Sprintf("/tournament/%d/kenpom", tournamentID)
	if err := a.client.Get(ctx, endpoint, nil, &entries); err != nil {
		return nil, fmt.Errorf("fetching kenpom ratings: %w", err)
	}
	return entries, nil
}

// Generate asks the backend to produce count brackets. count <= 0 uses DefaultGenerateCount.
func (a *API) Generate(ctx context.Context, tournamentID, count int) (*models.GenerateResult, error) {
	if count <= 0 {
		count = DefaultGenerateCount
	}
	var result models.GenerateResult
	endpoint := fmt.Sprintf("/tournament/%d/generate", tournamentID)
	params := map[string]string{
		"count": strconv.Itoa(count),
	}
	if err := a.client.Post(ctx, endpoint, params, nil, &result); err != nil {
		return nil, fmt.Errorf("generating brackets: %w", err)
	}
	return &result, nil
}

func (a *API) GetBrackets(ctx context.Context, tournamentID int) ([]models.GeneratedBracket, error) {
	var brackets []models.GeneratedBracket
	endpoint := fmt.Sprintf("/tournament/%d/brackets", tournamentID)
	if err := a.client.Get(ctx, endpoint, nil, &brackets); err != nil {
		return nil, fmt.Errorf("fetching brackets: %w", err)
	}
	return brackets, nil
}

func (a *API) DeleteBrackets(ctx context.Context, tournamentID int) (*models.DeleteResult, error) {
	var result models.DeleteResult
	endpoint := fmt.Sprintf("/tournament/%d/brackets", tournamentID)
	if err := a.client.Delete(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("deleting brackets: %w", err)
	}
	return &result, nil
}

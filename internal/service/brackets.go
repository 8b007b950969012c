package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/omarshaarawi/bracketbot/internal/export"
	"github.com/omarshaarawi/bracketbot/internal/metrics"
	"github.com/omarshaarawi/bracketbot/internal/models"
	"github.com/omarshaarawi/bracketbot/internal/repository/memory"
)

var (
	ErrExportRefetch    = errors.New("re-fetching full bracket data failed")
	ErrBracketNotFound  = errors.New("bracket not found")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrChampionNotFound = errors.New("no champion matches")
)

const tournamentTTL = time.Hour

// TournamentAPI is the backend, already scoped to the selected tournament.
type TournamentAPI interface {
	ID() int
	Select(id int)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	Tournament(ctx context.Context) (*models.Tournament, error)
	Generate(ctx context.Context, count int) (*models.GenerateResult, error)
	Brackets(ctx context.Context) ([]models.GeneratedBracket, error)
	DeleteBrackets(ctx context.Context) (*models.DeleteResult, error)
	KenPom(ctx context.Context) ([]models.KenPomEntry, error)
	UploadKenPom(ctx context.Context, filename string, content io.Reader) (*models.KenPomUploadResult, error)
}

type Options struct {
	// Year is used for export names when the tournament cannot be fetched.
	Year          int
	GenerateCount int
	// Location is the zone of the readable export's timestamp; nil keeps local time.
	Location *time.Location
}

type BracketService struct {
	api          TournamentAPI
	repo         *memory.Repository
	opts         Options
	generateGate *RequestGate
	deleteGate   *RequestGate
	now          func() time.Time
}

func NewBracketService(api TournamentAPI, repo *memory.Repository, opts Options) *BracketService {
	return &BracketService{
		api:          api,
		repo:         repo,
		opts:         opts,
		generateGate: NewRequestGate("generate"),
		deleteGate:   NewRequestGate("delete"),
		now:          time.Now,
	}
}

// API exposes the scoped backend, e.g. as a KenPom uploader.
func (s *BracketService) API() TournamentAPI {
	return s.api
}

func (s *BracketService) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.api.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching tournaments: %w", err)
	}
	return tournaments, nil
}

// SelectTournament switches the session to another tournament, dropping cached state.
func (s *BracketService) SelectTournament(ctx context.Context, id int) (*models.Tournament, error) {
	previous := s.api.ID()
	s.api.Select(id)

	tournament, err := s.api.Tournament(ctx)
	if err != nil {
		s.api.Select(previous)
		return nil, fmt.Errorf("error selecting tournament %d: %w", id, err)
	}

	s.repo.Clear()
	s.repo.SaveTournament(tournament)
	slog.Info("Tournament selected", "tournament_id", id, "year", tournament.Year)
	return tournament, nil
}

func (s *BracketService) CurrentTournament(ctx context.Context) (*models.Tournament, error) {
	tournament, updated := s.repo.GetTournament()
	if tournament != nil && tournament.ID == s.api.ID() && time.Since(updated) < tournamentTTL {
		return tournament, nil
	}

	fresh, err := s.api.Tournament(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching tournament: %w", err)
	}
	s.repo.SaveTournament(fresh)
	return fresh, nil
}

// Year is the selected tournament's year, or the configured year when the backend cannot say.
func (s *BracketService) Year(ctx context.Context) int {
	tournament, err := s.CurrentTournament(ctx)
	if err != nil || tournament.Year == 0 {
		if err != nil {
			slog.Warn("Falling back to configured tournament year", "year", s.opts.Year, "error", err)
		}
		return s.opts.Year
	}
	return tournament.Year
}

// LoadBrackets fetches the bracket list and replaces the session cache.
func (s *BracketService) LoadBrackets(ctx context.Context) ([]models.GeneratedBracket, error) {
	brackets, err := s.api.Brackets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading brackets: %w", err)
	}
	for _, b := range brackets {
		if err := models.ValidateBracket(b); err != nil {
			slog.Warn("Bracket record breaks invariants", "bracket_id", b.ID, "error", err)
		}
	}
	s.repo.SaveBrackets(brackets)
	slog.Info("Brackets loaded", "tournament_id", s.api.ID(), "count", len(brackets))
	return brackets, nil
}

func (s *BracketService) cachedBrackets(ctx context.Context) ([]models.GeneratedBracket, error) {
	if brackets, loaded := s.repo.GetBrackets(); loaded {
		return brackets, nil
	}
	return s.LoadBrackets(ctx)
}

// Brackets returns the loaded list filtered by strategy; "" and "all" keep everything.
func (s *BracketService) Brackets(ctx context.Context, strategy string) ([]models.GeneratedBracket, error) {
	filter := models.Strategy(strings.ToLower(strings.TrimSpace(strategy)))
	if filter != "" && filter != "all" && !filter.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	brackets, err := s.cachedBrackets(ctx)
	if err != nil {
		return nil, err
	}
	if filter == "" || filter == "all" {
		return brackets, nil
	}

	var out []models.GeneratedBracket
	for _, b := range brackets {
		if b.Strategy == filter {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BracketService) StrategyStats(ctx context.Context) (models.StrategyStats, error) {
	brackets, err := s.cachedBrackets(ctx)
	if err != nil {
		return models.StrategyStats{}, err
	}
	return CountStrategies(brackets), nil
}

func CountStrategies(brackets []models.GeneratedBracket) models.StrategyStats {
	stats := models.StrategyStats{Total: len(brackets), Counts: make(map[models.Strategy]int)}
	for _, st := range models.Strategies {
		stats.Counts[st] = 0
	}
	for _, b := range brackets {
		if b.Strategy.Valid() {
			stats.Counts[b.Strategy]++
		}
	}
	return stats
}

// Generate asks the backend for count new brackets and reloads the list.
// A second call while one is running returns ErrRequestInFlight without a request.
func (s *BracketService) Generate(ctx context.Context, count int) (*models.GenerateResult, error) {
	if count <= 0 {
		count = s.opts.GenerateCount
	}

	var result *models.GenerateResult
	err := s.generateGate.Run(func() error {
		var err error
		result, err = s.api.Generate(ctx, count)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error generating brackets: %w", err)
	}

	slog.Info("Brackets generated", "tournament_id", s.api.ID(), "count", count)
	if _, err := s.LoadBrackets(ctx); err != nil {
		slog.Error("Failed to reload brackets after generation", "error", err)
	}
	return result, nil
}

func (s *BracketService) DeleteAll(ctx context.Context) (*models.DeleteResult, error) {
	var result *models.DeleteResult
	err := s.deleteGate.Run(func() error {
		var err error
		result, err = s.api.DeleteBrackets(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error deleting brackets: %w", err)
	}

	s.repo.SaveBrackets(nil)
	slog.Info("Brackets deleted", "tournament_id", s.api.ID(), "message", result.Message)
	return result, nil
}

func (s *BracketService) GenerateStatus() GateStatus {
	return s.generateGate.Status()
}

func (s *BracketService) DeleteStatus() GateStatus {
	return s.deleteGate.Status()
}

// Session is a snapshot of the cached tournament and bracket list.
func (s *BracketService) Session() models.Session {
	return s.repo.Session()
}

// fullBrackets re-fetches every record with picks; the loaded list may be summary only.
func (s *BracketService) fullBrackets(ctx context.Context) ([]models.GeneratedBracket, error) {
	brackets, err := s.api.Brackets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportRefetch, err)
	}
	return brackets, nil
}

func (s *BracketService) Export(ctx context.Context, format export.Format) (export.File, error) {
	runID := uuid.NewString()
	var (
		file export.File
		err  error
	)
	switch format {
	case export.FormatText:
		file, err = s.ExportReadable(ctx)
	case export.FormatCSV:
		file, err = s.ExportCSV(ctx)
	case export.FormatJSON:
		file, err = s.ExportJSON(ctx)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	metrics.ObserveExport(string(format), err)
	if err != nil {
		slog.Error("Export failed", "export_id", runID, "format", format, "error", err)
		return export.File{}, err
	}
	slog.Info("Export produced", "export_id", runID, "format", format, "file", file.Name, "bytes", len(file.Data))
	return file, nil
}

// ExportAll renders every format from a single re-fetch, so the files of one
// snapshot describe the same bracket list. The fetched list replaces the session cache.
func (s *BracketService) ExportAll(ctx context.Context) ([]export.File, error) {
	runID := uuid.NewString()
	brackets, err := s.fullBrackets(ctx)
	if err != nil {
		for _, format := range export.Formats {
			metrics.ObserveExport(string(format), err)
		}
		slog.Error("Export failed", "export_id", runID, "format", "all", "error", err)
		return nil, err
	}
	s.repo.SaveBrackets(brackets)

	year, at := s.Year(ctx), s.stamp()
	files := make([]export.File, 0, len(export.Formats))
	for _, format := range export.Formats {
		file, err := render(format, brackets, year, at)
		metrics.ObserveExport(string(format), err)
		if err != nil {
			slog.Error("Export failed", "export_id", runID, "format", format, "error", err)
			return nil, err
		}
		files = append(files, file)
	}
	slog.Info("Exports produced", "export_id", runID, "files", len(files), "brackets", len(brackets))
	return files, nil
}

func (s *BracketService) ExportReadable(ctx context.Context) (export.File, error) {
	brackets, err := s.fullBrackets(ctx)
	if err != nil {
		return export.File{}, err
	}
	return render(export.FormatText, brackets, s.Year(ctx), s.stamp())
}

// ExportCSV uses the already-loaded summary list.
func (s *BracketService) ExportCSV(ctx context.Context) (export.File, error) {
	brackets, err := s.cachedBrackets(ctx)
	if err != nil {
		return export.File{}, err
	}
	return render(export.FormatCSV, brackets, s.Year(ctx), s.stamp())
}

func (s *BracketService) ExportJSON(ctx context.Context) (export.File, error) {
	brackets, err := s.fullBrackets(ctx)
	if err != nil {
		return export.File{}, err
	}
	return render(export.FormatJSON, brackets, s.Year(ctx), s.stamp())
}

// stamp is the export time in the configured zone; JSON converts it to UTC itself.
func (s *BracketService) stamp() time.Time {
	if s.opts.Location != nil {
		return s.now().In(s.opts.Location)
	}
	return s.now()
}

func render(format export.Format, brackets []models.GeneratedBracket, year int, at time.Time) (export.File, error) {
	var data []byte
	switch format {
	case export.FormatText:
		data = []byte(export.Readable(brackets, year, at))
	case export.FormatCSV:
		data = []byte(export.CSV(brackets))
	case export.FormatJSON:
		var err error
		if data, err = export.JSON(brackets, year, at); err != nil {
			return export.File{}, err
		}
	default:
		return export.File{}, fmt.Errorf("unknown export format %q", format)
	}
	return export.File{
		Name:        export.Filename(format, year),
		ContentType: export.ContentType(format),
		Data:        data,
	}, nil
}

// ExportBracket renders a single bracket with its full picks.
func (s *BracketService) ExportBracket(ctx context.Context, id int) (export.File, error) {
	brackets, err := s.fullBrackets(ctx)
	if err != nil {
		return export.File{}, err
	}
	for _, b := range brackets {
		if b.ID == id {
			return export.File{
				Name:        export.BracketFilename(s.Year(ctx), id),
				ContentType: export.ContentType(export.FormatText),
				Data:        []byte(export.BracketText(b)),
			}, nil
		}
	}
	return export.File{}, fmt.Errorf("%w: #%d", ErrBracketNotFound, id)
}

// FindByChampion fuzzy-matches team against the predicted champions and
// returns the matched name with every bracket picking it.
func (s *BracketService) FindByChampion(ctx context.Context, team string) (string, []models.GeneratedBracket, error) {
	brackets, err := s.cachedBrackets(ctx)
	if err != nil {
		return "", nil, err
	}

	var champions []string
	seen := make(map[string]bool)
	for _, b := range brackets {
		if b.Champion != "" && !seen[b.Champion] {
			seen[b.Champion] = true
			champions = append(champions, b.Champion)
		}
	}

	match, ok := bestMatch(team, champions)
	if !ok {
		return "", nil, fmt.Errorf("%w %q", ErrChampionNotFound, team)
	}

	var out []models.GeneratedBracket
	for _, b := range brackets {
		if b.Champion == match {
			out = append(out, b)
		}
	}
	return match, out, nil
}

func bestMatch(query string, candidates []string) (string, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", false
	}

	const threshold = 0.7
	best, bestScore := "", -1.0
	for _, c := range candidates {
		name := strings.ToLower(c)
		if name == query {
			return c, true
		}
		distance := fuzzy.LevenshteinDistance(query, name)
		maxLen := float64(max(len(query), len(name)))
		similarity := 1 - float64(distance)/maxLen
		if fuzzy.MatchFold(query, name) && similarity < threshold {
			similarity = threshold
		}
		if similarity >= threshold && similarity > bestScore {
			best, bestScore = c, similarity
		}
	}
	return best, best != ""
}

func (s *BracketService) KenPom(ctx context.Context) ([]models.KenPomEntry, error) {
	entries, err := s.api.KenPom(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching kenpom ratings: %w", err)
	}
	return entries, nil
}

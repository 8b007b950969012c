package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/omarshaarawi/bracketbot/internal/config"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const jobTimeout = 5 * time.Minute

type Scheduler struct {
	s              gocron.Scheduler
	bracketService *service.BracketService
	cfg            config.Export
	sendMessage    func(string) error
}

// NewScheduler builds the job scheduler. sendMessage may be nil when no chat is configured.
func NewScheduler(bracketService *service.BracketService, cfg config.Export, sendMessage func(string) error) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %q: %w", cfg.Timezone, err)
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:              s,
		bracketService: bracketService,
		cfg:            cfg,
		sendMessage:    sendMessage,
	}, nil
}

func (s *Scheduler) Start() error {
	var err error

	// Export snapshot - EXPORT_CRON, 08:00 by default
	_, err = s.s.NewJob(
		gocron.CronJob(s.cfg.Cron, false),
		gocron.NewTask(s.runSnapshot),
		gocron.WithName("export-snapshot"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create export snapshot job: %w", err)
	}

	// Strategy digest - daily 09:00
	_, err = s.s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(9, 0, 0))),
		gocron.NewTask(s.sendStats),
		gocron.WithName("stats-digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create stats digest job: %w", err)
	}

	s.s.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

// SnapshotResult lists the files one snapshot run wrote.
type SnapshotResult struct {
	Dir   string
	Files []string
}

// Snapshot writes every export format, rendered from one fetch of the bracket
// list, into a fresh directory under the export dir. Nothing is written unless
// all formats were produced.
func (s *Scheduler) Snapshot(ctx context.Context) (SnapshotResult, error) {
	files, err := s.bracketService.ExportAll(ctx)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("exporting snapshot: %w", err)
	}

	runID := uuid.NewString()
	dir := filepath.Join(s.cfg.Dir, time.Now().Format("20060102-150405")+"-"+runID[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SnapshotResult{}, fmt.Errorf("creating snapshot dir: %w", err)
	}

	result := SnapshotResult{Dir: dir}
	for _, file := range files {
		path := filepath.Join(dir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return result, fmt.Errorf("writing %s: %w", file.Name, err)
		}
		result.Files = append(result.Files, file.Name)
	}
	slog.Info("Export snapshot written", "dir", dir, "files", len(result.Files))
	return result, nil
}

func (s *Scheduler) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.Snapshot(ctx)
	if err != nil {
		slog.Error("Failed to write export snapshot", "error", err)
		s.send(service.StatusMessage(service.ActionExport, err))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💾 *Export snapshot* (%d files)\n", len(result.Files)))
	for _, name := range result.Files {
		sb.WriteString(fmt.Sprintf("• `%s`\n", name))
	}
	s.send(sb.String())
}

func (s *Scheduler) sendStats() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	brackets, err := s.bracketService.LoadBrackets(ctx)
	if err != nil {
		slog.Error("Failed to load brackets for digest", "error", err)
		return
	}
	s.send(service.FormatStats(service.CountStrategies(brackets)))
}

func (s *Scheduler) send(text string) {
	if s.sendMessage == nil {
		return
	}
	if err := s.sendMessage(text); err != nil {
		slog.Error("Failed to send scheduled message", "error", err)
	}
}

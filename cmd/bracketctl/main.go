package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/omarshaarawi/bracketbot/internal/api/madness"
	"github.com/omarshaarawi/bracketbot/internal/api/tournament"
	"github.com/omarshaarawi/bracketbot/internal/config"
	"github.com/omarshaarawi/bracketbot/internal/export"
	"github.com/omarshaarawi/bracketbot/internal/kenpom"
	"github.com/omarshaarawi/bracketbot/internal/logger"
	"github.com/omarshaarawi/bracketbot/internal/repository/memory"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const usage = `usage: bracketctl <command> [flags]

commands:
  tournaments                         list tournaments
  brackets [-strategy s]              list generated brackets
  generate [-count n]                 generate brackets
  delete                              delete every bracket
  export -format text|csv|json [-out dir]
  upload <file.csv>...                upload KenPom files (year in file name)
  kenpom                              show KenPom status and top ratings
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	_ = godotenv.Load()
	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger.InitWriter(os.Stderr, cfg.Server.LogLevel)

	location, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load location %q: %w", cfg.Export.Timezone, err)
	}

	api := tournament.NewAPI(madness.NewAPI(madness.NewClient(cfg.BracketAPI)), cfg.BracketAPI.TournamentID)
	svc := service.NewBracketService(api, memory.NewRepository(), service.Options{
		Year:          cfg.BracketAPI.Year,
		GenerateCount: cfg.BracketAPI.GenerateCount,
		Location:      location,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{service: svc, out: out, generateCount: cfg.BracketAPI.GenerateCount}
	return c.dispatch(ctx, args[0], args[1:])
}

type cli struct {
	service       *service.BracketService
	out           io.Writer
	generateCount int
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "tournaments":
		return c.tournaments(ctx)
	case "brackets":
		return c.brackets(ctx, args)
	case "generate":
		return c.generate(ctx, args)
	case "delete":
		return c.delete(ctx)
	case "export":
		return c.export(ctx, args)
	case "upload":
		return c.upload(ctx, args)
	case "kenpom":
		return c.kenpom(ctx)
	}
	return fmt.Errorf("unknown command %q: %w", command, errUsage)
}

func (c *cli) tournaments(ctx context.Context) error {
	tournaments, err := c.service.Tournaments(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tYEAR\tTEAMS\tSELECTED")
	for _, t := range tournaments {
		selected := ""
		if t.ID == c.service.API().ID() {
			selected = "*"
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", t.ID, t.Year, t.TeamCount(), selected)
	}
	return w.Flush()
}

func (c *cli) brackets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("brackets", flag.ContinueOnError)
	strategy := fs.String("strategy", "all", "value, chalk, chaos or all")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	brackets, err := c.service.Brackets(ctx, *strategy)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTRATEGY\tCHAMPION\tSCORE\tUPSETS\tPOOL")
	for _, b := range brackets {
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%d\t%s\n", b.ID, b.Strategy, b.Champion, b.ExpectedScore, b.UpsetCount, b.PoolTag)
	}
	fmt.Fprintf(w, "\n%d brackets\n", len(brackets))
	return w.Flush()
}

func (c *cli) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	count := fs.Int("count", c.generateCount, "number of brackets to generate")
	if err := fs.Parse(args); err != nil || *count <= 0 {
		return errUsage
	}

	result, err := c.service.Generate(ctx, *count)
	if err != nil {
		fmt.Fprintln(c.out, service.StatusMessage(service.ActionGenerate, err))
		return err
	}
	message := fmt.Sprintf("Generated %d brackets", *count)
	if result != nil && result.Message != "" {
		message = result.Message
	}
	fmt.Fprintln(c.out, message)
	return nil
}

func (c *cli) delete(ctx context.Context) error {
	_, err := c.service.DeleteAll(ctx)
	fmt.Fprintln(c.out, service.StatusMessage(service.ActionDelete, err))
	return err
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatFlag := fs.String("format", "", "text, csv or json")
	dir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil || *formatFlag == "" {
		return errUsage
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	file, err := c.service.Export(ctx, format)
	if err != nil {
		fmt.Fprintln(c.out, service.StatusMessage(service.ActionExport, err))
		return err
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", *dir, err)
	}
	path := filepath.Join(*dir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(c.out, "wrote %s (%d bytes)\n", path, len(file.Data))
	return nil
}

func (c *cli) upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	names := kenpom.FilterCSV(args)
	if len(names) < len(args) {
		slog.Warn("Ignoring non-csv arguments", "given", len(args), "csv", len(names))
	}

	files := make([]kenpom.File, 0, len(names))
	for _, name := range names {
		files = append(files, kenpom.DiskFile(name))
	}

	report := kenpom.NewQueue(c.service.API()).UploadAll(ctx, files)
	if err := c.printUploadReport(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", report.Failed, len(files))
	}
	return nil
}

func (c *cli) kenpom(ctx context.Context) error {
	queue := kenpom.NewQueue(c.service.API())
	if err := queue.Refresh(ctx, c.service.API()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "YEAR\tDATA\tTEAMS")
	for _, s := range queue.Statuses() {
		data := "-"
		if s.HasData {
			data = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", s.Year, data, s.TeamCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	entries, err := c.service.KenPom(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\nKenPom ratings (%d teams)\n", len(entries))
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "no KenPom data uploaded yet")
		return nil
	}
	for i, e := range service.TopKenPom(entries, 15) {
		fmt.Fprintf(c.out, "%d. %s  AdjEM %.2f (O %.1f / D %.1f, T %.1f)\n",
			i+1, e.TeamName, e.AdjEM, e.AdjO, e.AdjD, e.Tempo)
	}
	return nil
}

func (c *cli) printUploadReport(report kenpom.Report) error {
	fmt.Fprintf(c.out, "KenPom upload: %d uploaded, %d failed, %d skipped\n",
		report.Uploaded, report.Failed, len(report.Skipped))

	if len(report.Statuses) > 0 {
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "YEAR\tSTATUS\tDETAIL")
		for _, s := range report.Statuses {
			switch s.State {
			case kenpom.StateSuccess:
				fmt.Fprintf(w, "%d\tok\t%d teams\n", s.Year, s.TeamCount)
			case kenpom.StateFailed:
				fmt.Fprintf(w, "%d\tfailed\t%s\n", s.Year, s.Error)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(c.out, "skipped %s: no year in file name\n", name)
	}
	return nil
}

package kenpom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/omarshaarawi/bracketbot/internal/metrics"
	"github.com/omarshaarawi/bracketbot/internal/models"
)

var ErrNoYear = errors.New("no 4-digit year in filename")

// TrackedYears are the seasons shown in the upload status grid.
var TrackedYears = []int{2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023, 2024, 2025}

var yearPattern = regexp.MustCompile(`(\d{4})`)

// ExtractYear returns the first run of four digits in the file name.
func ExtractYear(filename string) (int, error) {
	match := yearPattern.FindString(filepath.Base(filename))
	if match == "" {
		return 0, fmt.Errorf("%s: %w", filename, ErrNoYear)
	}
	year, err := strconv.Atoi(match)
	if err != nil || year == 0 {
		return 0, fmt.Errorf("%s: %w", filename, ErrNoYear)
	}
	return year, nil
}

// FilterCSV keeps only .csv names, preserving order.
func FilterCSV(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, ".csv") {
			out = append(out, n)
		}
	}
	return out
}

type Uploader interface {
	UploadKenPom(ctx context.Context, filename string, content io.Reader) (*models.KenPomUploadResult, error)
}

type Lister interface {
	KenPom(ctx context.Context) ([]models.KenPomEntry, error)
}

type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

func DiskFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

func BytesFile(name string, data []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
)

type YearStatus struct {
	Year      int
	HasData   bool
	TeamCount int
	State     State
	Error     string
}

type Report struct {
	Statuses []YearStatus
	Skipped  []string
	Uploaded int
	Failed   int
}

// Queue uploads rating files one at a time and tracks per-year status.
type Queue struct {
	uploader Uploader
	mu       sync.Mutex
	statuses map[int]*YearStatus
}

func NewQueue(uploader Uploader) *Queue {
	q := &Queue{
		uploader: uploader,
		statuses: make(map[int]*YearStatus),
	}
	for _, y := range TrackedYears {
		q.statuses[y] = &YearStatus{Year: y, State: StateIdle}
	}
	return q
}

// Refresh marks the year that currently has ratings on the backend.
func (q *Queue) Refresh(ctx context.Context, lister Lister) error {
	entries, err := lister.KenPom(ctx)
	if err != nil {
		return fmt.Errorf("checking existing kenpom data: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range q.statuses {
		s.HasData = len(entries) > 0 && entries[0].Year == s.Year
		s.TeamCount = 0
		if s.HasData {
			s.TeamCount = len(entries)
		}
	}
	return nil
}

// UploadAll sends files in order. Files without a year are skipped without a
// request; a failed upload is recorded and the queue moves on.
func (q *Queue) UploadAll(ctx context.Context, files []File) Report {
	var report Report

	for _, f := range files {
		if ctx.Err() != nil {
			slog.Warn("KenPom upload queue cancelled", "remaining", f.Name)
			break
		}

		year, err := ExtractYear(f.Name)
		if err != nil {
			slog.Error("Could not extract year from filename", "file", f.Name, "error", err)
			metrics.ObserveUpload("skipped")
			report.Skipped = append(report.Skipped, f.Name)
			continue
		}

		if err := q.upload(ctx, year, f); err != nil {
			slog.Error("KenPom upload failed", "file", f.Name, "year", year, "error", err)
			metrics.ObserveUpload("failed")
			report.Failed++
			continue
		}
		metrics.ObserveUpload("uploaded")
		report.Uploaded++
	}

	report.Statuses = q.Statuses()
	return report
}

func (q *Queue) upload(ctx context.Context, year int, f File) error {
	q.setStatus(year, func(s *YearStatus) {
		s.State = StateUploading
		s.Error = ""
	})

	result, err := q.send(ctx, f)
	if err != nil {
		q.setStatus(year, func(s *YearStatus) {
			s.State = StateFailed
			s.Error = "Upload failed"
		})
		return err
	}

	q.setStatus(year, func(s *YearStatus) {
		s.HasData = true
		s.TeamCount = len(result.Entries)
		s.State = StateSuccess
	})
	slog.Info("KenPom file uploaded", "file", f.Name, "year", year, "teams", len(result.Entries))
	return nil
}

func (q *Queue) send(ctx context.Context, f File) (*models.KenPomUploadResult, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	return q.uploader.UploadKenPom(ctx, f.Name, rc)
}

func (q *Queue) setStatus(year int, update func(*YearStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.statuses[year]
	if !ok {
		s = &YearStatus{Year: year, State: StateIdle}
		q.statuses[year] = s
	}
	update(s)
}

// Statuses returns a snapshot ordered by year.
func (q *Queue) Statuses() []YearStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]YearStatus, 0, len(q.statuses))
	for _, s := range q.statuses {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b YearStatus) int { return a.Year - b.Year })
	return out
}

func (q *Queue) Status(year int) (YearStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.statuses[year]
	if !ok {
		return YearStatus{}, false
	}
	return *s, true
}

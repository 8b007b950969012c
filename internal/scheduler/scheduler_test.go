package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarshaarawi/bracketbot/internal/api/madness"
	"github.com/omarshaarawi/bracketbot/internal/api/tournament"
	"github.com/omarshaarawi/bracketbot/internal/config"
	"github.com/omarshaarawi/bracketbot/internal/repository/memory"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const (
	chaosRecord = `{"id":1,"strategy":"chaos","champion":"UConn","final_four":["A","B","C","UConn"],"expected_score":88,"upset_count":20,"pool_tag":"x","picks":{}}`
	chalkRecord = `{"id":2,"strategy":"chalk","champion":"Purdue","final_four":["Purdue","B","C","UConn"],"expected_score":140,"upset_count":3,"pool_tag":"y","picks":{}}`
)

type testBackend struct {
	fail  atomic.Bool
	grown atomic.Bool
}

func newTestScheduler(t *testing.T, b *testBackend, sent *[]string) *Scheduler {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tournament/1":
			_, _ = w.Write([]byte(`{"id":1,"year":2024}`))
		case "/tournament/1/brackets":
			if b.fail.Load() {
				http.Error(w, `{"detail":"boom"}`, http.StatusBadGateway)
				return
			}
			if b.grown.Load() {
				_, _ = w.Write([]byte("[" + chaosRecord + "," + chalkRecord + "]"))
				return
			}
			_, _ = w.Write([]byte("[" + chaosRecord + "]"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	client := madness.NewClient(config.BracketAPI{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	api := tournament.NewAPI(madness.NewAPI(client), 1)
	svc := service.NewBracketService(api, memory.NewRepository(), service.Options{Year: 2024, GenerateCount: 200})

	cfg := config.Export{Dir: t.TempDir(), Cron: "0 8 * * *", Timezone: "America/Chicago"}
	s, err := NewScheduler(svc, cfg, func(text string) error {
		*sent = append(*sent, text)
		return nil
	})
	require.NoError(t, err)
	return s
}

func TestSnapshotWritesEveryFormat(t *testing.T) {
	var b testBackend
	var sent []string
	s := newTestScheduler(t, &b, &sent)

	result, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"march_madness_2024_READABLE_BRACKETS.txt",
		"march_madness_2024_summary.csv",
		"march_madness_2024_full_data.json",
	}, result.Files)

	for _, name := range result.Files {
		info, err := os.Stat(filepath.Join(result.Dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestSnapshotFormatsShareOneFetch(t *testing.T) {
	var b testBackend
	var sent []string
	s := newTestScheduler(t, &b, &sent)
	ctx := context.Background()

	loaded, err := s.bracketService.LoadBrackets(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	b.grown.Store(true)

	result, err := s.Snapshot(ctx)
	require.NoError(t, err)

	csv, err := os.ReadFile(filepath.Join(result.Dir, "march_madness_2024_summary.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(csv), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "2,chalk,y,Purdue,"))

	text, err := os.ReadFile(filepath.Join(result.Dir, "march_madness_2024_READABLE_BRACKETS.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total Brackets: 2\n")

	data, err := os.ReadFile(filepath.Join(result.Dir, "march_madness_2024_full_data.json"))
	require.NoError(t, err)
	var env struct {
		BracketCount int `json:"bracket_count"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, 2, env.BracketCount)

	assert.Len(t, s.bracketService.Session().Brackets, 2)
}

func TestSnapshotFailureWritesNothing(t *testing.T) {
	var b testBackend
	b.fail.Store(true)
	var sent []string
	s := newTestScheduler(t, &b, &sent)

	s.runSnapshot()

	entries, err := os.ReadDir(s.cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "could not be re-fetched")
}

func TestRunSnapshotSendsSummary(t *testing.T) {
	var b testBackend
	var sent []string
	s := newTestScheduler(t, &b, &sent)

	s.runSnapshot()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Export snapshot* (3 files)")
}

func TestStatsDigest(t *testing.T) {
	var b testBackend
	var sent []string
	s := newTestScheduler(t, &b, &sent)

	s.sendStats()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "CHAOS: 1")
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(nil, config.Export{Timezone: "Mars/Olympus"}, nil)
	assert.Error(t, err)
}

func TestStartRegistersJobs(t *testing.T) {
	var b testBackend
	var sent []string
	s := newTestScheduler(t, &b, &sent)

	require.NoError(t, s.Start())
	assert.Len(t, s.s.Jobs(), 2)
	require.NoError(t, s.Stop())
}

package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgjin/spotify-crawler/internal/csvio"
	"github.com/jgjin/spotify-crawler/internal/spotify"
)

// newMockProvider wires a fresh token server and an apiBase override
// that serves search/related-artists from the given handler, returning
// a ready-to-use Ring (t.Cleanup handles restoration of both
// package-level vars).
func newMockProvider(t *testing.T, handler http.HandlerFunc) *spotify.Ring {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)
	restoreToken := spotify.SetTokenURLForTesting(tokenSrv.URL)
	t.Cleanup(restoreToken)

	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)
	restoreBase := spotify.SetAPIBaseForTesting(api.URL)
	t.Cleanup(restoreBase)

	path := filepath.Join(t.TempDir(), "clients.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create clients.csv: %v", err)
	}
	fmt.Fprintln(f, "name,id,secret")
	fmt.Fprintln(f, "cred-0,id-0,secret-0")
	f.Close()

	ring, err := spotify.NewRing(spotify.Config{ClientsFile: path})
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return ring
}

func artist(id string) spotify.ArtistFull {
	return spotify.ArtistFull{ID: id, Name: id, Genres: []string{"rock"}}
}

// TestCrawlArtists_SeedExpansion covers the concrete seed-expansion
// scenario: a single seed resolved via search, limit 1, expect exactly
// one persisted row for the resolved id.
func TestCrawlArtists_SeedExpansion(t *testing.T) {
	ring := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case pathHas(r, "/search"):
			json.NewEncoder(w).Encode(map[string]spotify.Paging[spotify.ArtistFull]{
				"artists": {Items: []spotify.ArtistFull{artist("R")}},
			})
		case pathHas(r, "/related-artists"):
			json.NewEncoder(w).Encode(map[string][]spotify.ArtistFull{"artists": {}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	out := filepath.Join(t.TempDir(), "artists.csv")
	err := CrawlArtists(context.Background(), ring, ArtistsConfig{
		Seeds:   []string{"Radiohead"},
		Limit:   1,
		Workers: 2,
		OutPath: out,
	})
	if err != nil {
		t.Fatalf("CrawlArtists: %v", err)
	}

	rows, err := csvio.ReadRows[spotify.ArtistCsv](out)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "R" {
		t.Fatalf("got %+v, want exactly one row with id=R", rows)
	}
}

// TestCrawlArtists_CliqueOvershootBound builds a complete graph of 100
// artists all related to each other. With limit=10 and workers=4, the
// worker pool may overshoot limit by up to workers-1 rows (each worker
// can cross the limit check and write one more row before the others
// observe it), but must never emit fewer than limit.
func TestCrawlArtists_CliqueOvershootBound(t *testing.T) {
	const n = 100
	all := make([]spotify.ArtistFull, n)
	for i := range all {
		all[i] = artist(fmt.Sprintf("a%d", i))
	}

	ring := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case pathHas(r, "/search"):
			json.NewEncoder(w).Encode(map[string]spotify.Paging[spotify.ArtistFull]{
				"artists": {Items: []spotify.ArtistFull{all[0]}},
			})
		case pathHas(r, "/related-artists"):
			json.NewEncoder(w).Encode(map[string][]spotify.ArtistFull{"artists": all})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	out := filepath.Join(t.TempDir(), "artists.csv")
	const limit = 10
	const workers = 4
	err := CrawlArtists(context.Background(), ring, ArtistsConfig{
		Seeds:   []string{"seed"},
		Limit:   limit,
		Workers: workers,
		OutPath: out,
	})
	if err != nil {
		t.Fatalf("CrawlArtists: %v", err)
	}

	rows, err := csvio.ReadRows[spotify.ArtistCsv](out)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) < limit || len(rows) > limit+workers-1 {
		t.Fatalf("got %d rows, want between %d and %d", len(rows), limit, limit+workers-1)
	}

	seen := map[string]bool{}
	for _, row := range rows {
		if seen[row.ID] {
			t.Fatalf("duplicate row for id=%s: visited-set did not dedupe", row.ID)
		}
		seen[row.ID] = true
	}
}

// TestPopWithBackoff_ReturnsFalseOnExhaustedSchedule exercises only the
// backoff helper in isolation so the full popBackoff schedule doesn't
// have to elapse inside the higher-level crawl tests above.
func TestPopWithBackoff_ReturnsFalseOnExhaustedSchedule(t *testing.T) {
	old := popBackoff
	popBackoff = []time.Duration{1 * time.Millisecond, 1 * time.Millisecond}
	defer func() { popBackoff = old }()

	queue := &artistQueue{}
	_, ok := popWithBackoff(context.Background(), queue)
	if ok {
		t.Fatal("expected ok=false for a queue that never receives an item")
	}
}

func TestPopWithBackoff_ReturnsQueuedItem(t *testing.T) {
	queue := &artistQueue{}
	want := artist("x")
	queue.push(want)

	got, ok := popWithBackoff(context.Background(), queue)
	if !ok || got.ID != want.ID {
		t.Fatalf("got (%+v, %v), want (%+v, true)", got, ok, want)
	}
}

// TestArtistQueue_PushNeverBlocksUnderBurst pushes a large burst of items
// from many goroutines at once and requires every push to return
// immediately, regardless of how many items are already queued.
func TestArtistQueue_PushNeverBlocksUnderBurst(t *testing.T) {
	queue := &artistQueue{}
	const pushers = 64
	const perPusher = 50

	done := make(chan struct{}, pushers)
	for i := 0; i < pushers; i++ {
		go func(i int) {
			for j := 0; j < perPusher; j++ {
				queue.push(artist(fmt.Sprintf("p%d-%d", i, j)))
			}
			done <- struct{}{}
		}(i)
	}

	deadline := time.After(2 * time.Second)
	for i := 0; i < pushers; i++ {
		select {
		case <-done:
		case <-deadline:
			t.Fatal("push did not return under concurrent burst; queue is blocking")
		}
	}

	count := 0
	for {
		if _, ok := queue.pop(); !ok {
			break
		}
		count++
	}
	if count != pushers*perPusher {
		t.Fatalf("popped %d items, want %d", count, pushers*perPusher)
	}
}

func pathHas(r *http.Request, suffix string) bool {
	return len(r.URL.Path) >= len(suffix) && r.URL.Path[len(r.URL.Path)-len(suffix):] == suffix
}

// Package crawl implements the three BFS/pipeline crawl stages built on
// top of the credentialed-fetch engine in internal/spotify.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jgjin/spotify-crawler/internal/csvio"
	"github.com/jgjin/spotify-crawler/internal/spotify"
)

// ArtistsConfig configures the seeded BFS artist-discovery stage.
type ArtistsConfig struct {
	Seeds   []string
	Limit   int
	Workers int
	OutPath string
	Logger  *slog.Logger
}

// popBackoff is the exponential empty-pop backoff sequence (1, 2, 4, 8s)
// before a worker decides the queue is either exhausted (done) or
// genuinely stalled.
var popBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}

// artistQueue is an unbounded FIFO shared by every worker: push never
// blocks, regardless of how many related-artists batches land at once.
// A worker pops its own next artist from the same queue it pushes
// discovered ones onto, so push blocking on a full buffer would starve
// every other worker's pop and the whole pool could deadlock; a
// mutex-guarded slice has no such capacity to run out of.
type artistQueue struct {
	mu    sync.Mutex
	items []spotify.ArtistFull
}

func (q *artistQueue) push(a spotify.ArtistFull) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
}

func (q *artistQueue) pop() (spotify.ArtistFull, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return spotify.ArtistFull{}, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}

// CrawlArtists runs the seeded BFS over "related artists" until
// processed reaches cfg.Limit (tolerating an overshoot of up to
// workers-1 emits), writing ArtistCsv rows to cfg.OutPath.
func CrawlArtists(ctx context.Context, ring *spotify.Ring, cfg ArtistsConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString(), "stage", "artists")

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	writer, err := csvio.OpenWriter[spotify.ArtistCsv](cfg.OutPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	queue := &artistQueue{}
	var visited sync.Map
	var processed int64
	var outstanding int64
	var writeMu sync.Mutex

	for _, name := range cfg.Seeds {
		artist, err := spotify.SearchArtists(ctx, ring, name)
		if err != nil {
			logger.Error("seed search failed", "seed", name, "err", err)
			continue
		}
		if _, loaded := visited.LoadOrStore(artist.ID, struct{}{}); !loaded {
			atomic.AddInt64(&outstanding, 1)
			queue.push(artist)
		}
	}

	limit := int64(cfg.Limit)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return artistWorker(gctx, ring, queue, &visited, &processed, &outstanding, limit, writer, &writeMu, logger)
		})
	}

	err = g.Wait()
	logger.Info("artist crawl complete", "processed", atomic.LoadInt64(&processed))
	return err
}

func artistWorker(
	ctx context.Context,
	ring *spotify.Ring,
	queue *artistQueue,
	visited *sync.Map,
	processed, outstanding *int64,
	limit int64,
	writer *csvio.Writer,
	writeMu *sync.Mutex,
	logger *slog.Logger,
) error {
	getRelated := func(ctx context.Context, id string) ([]spotify.ArtistFull, error) {
		return spotify.GetArtistRelatedArtists(ctx, ring, id)
	}

	for {
		if atomic.LoadInt64(processed) >= limit {
			return nil
		}

		artist, ok := popWithBackoff(ctx, queue)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if atomic.LoadInt64(outstanding) == 0 {
				// Nothing left in flight anywhere: the reachable graph
				// was exhausted before hitting limit. Clean exit, not a
				// stall.
				return nil
			}
			return fmt.Errorf("artist worker: %w", spotify.ErrQueueStalled)
		}

		related := spotify.LoopUntilOk(ctx, logger, getRelated, artist.ID)
		for _, r := range related {
			if _, loaded := visited.LoadOrStore(r.ID, struct{}{}); !loaded {
				atomic.AddInt64(outstanding, 1)
				queue.push(r)
			}
		}
		atomic.AddInt64(outstanding, -1)

		if atomic.LoadInt64(processed) < limit {
			row := spotify.ArtistCsvFromFull(artist)
			writeMu.Lock()
			writeErr := writer.Write(row)
			writeMu.Unlock()
			if writeErr != nil {
				logger.Error("write artist row failed", "id", artist.ID, "err", writeErr)
				continue
			}
			n := atomic.AddInt64(processed, 1)
			logger.Info("artist crawled", "id", artist.ID, "processed", n)
		}
	}
}

// popWithBackoff polls queue, retrying with the popBackoff schedule
// when it is empty. Returns ok=false once the whole schedule elapses
// with nothing arriving.
func popWithBackoff(ctx context.Context, queue *artistQueue) (spotify.ArtistFull, bool) {
	if a, ok := queue.pop(); ok {
		return a, true
	}
	for _, d := range popBackoff {
		select {
		case <-ctx.Done():
			return spotify.ArtistFull{}, false
		case <-time.After(d):
		}
		if a, ok := queue.pop(); ok {
			return a, true
		}
	}
	return spotify.ArtistFull{}, false
}

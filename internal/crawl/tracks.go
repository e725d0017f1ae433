package crawl

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jgjin/spotify-crawler/internal/csvio"
	"github.com/jgjin/spotify-crawler/internal/spotify"
)

// TracksConfig configures the per-artist track(+feature) crawl stage.
type TracksConfig struct {
	InPath  string
	OutPath string
	Workers int
	// WithFeatures additionally fetches audio-analysis + audio-features
	// per track and runs the feature reducer, emitting FeaturesOutPath.
	WithFeatures    bool
	FeaturesOutPath string
	Logger          *slog.Logger
}

// CrawlTracks reads the artists CSV and, for each artist, fetches its
// top tracks, optionally reducing each track's
// audio-analysis/audio-features pair to a FeaturesCsv row.
func CrawlTracks(ctx context.Context, ring *spotify.Ring, cfg TracksConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString(), "stage", "tracks")

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	artists, err := csvio.ReadRows[spotify.ArtistCsv](cfg.InPath)
	if err != nil {
		return err
	}

	trackWriter, err := csvio.OpenWriter[spotify.TrackCsv2](cfg.OutPath)
	if err != nil {
		return err
	}
	defer trackWriter.Close()

	var featuresWriter *csvio.Writer
	if cfg.WithFeatures {
		featuresWriter, err = csvio.OpenWriter[spotify.FeaturesCsv](cfg.FeaturesOutPath)
		if err != nil {
			return err
		}
		defer featuresWriter.Close()
	}

	queue := make(chan spotify.ArtistCsv, len(artists))
	for _, a := range artists {
		queue <- a
	}
	close(queue)

	var trackMu, featuresMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for artist := range queue {
				if err := crawlArtistTracks(gctx, ring, artist, trackWriter, &trackMu, featuresWriter, &featuresMu, logger); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func crawlArtistTracks(
	ctx context.Context,
	ring *spotify.Ring,
	artist spotify.ArtistCsv,
	trackWriter *csvio.Writer,
	trackMu *sync.Mutex,
	featuresWriter *csvio.Writer,
	featuresMu *sync.Mutex,
	logger *slog.Logger,
) error {
	getTopTracks := func(ctx context.Context, id string) ([]spotify.TrackFull, error) {
		return spotify.GetArtistTopTracks(ctx, ring, id)
	}

	tracks := spotify.LoopUntilOk(ctx, logger, getTopTracks, artist.ID)

	for _, track := range tracks {
		row := spotify.TrackCsv2ExtractFrom(track, artist)
		trackMu.Lock()
		err := trackWriter.Write(row)
		trackMu.Unlock()
		if err != nil {
			logger.Error("write track row failed", "track_id", track.ID, "err", err)
		}

		if featuresWriter == nil {
			continue
		}

		getFeatures := func(ctx context.Context, id string) (spotify.AudioFeatures, error) {
			return spotify.GetTrackFeatures(ctx, ring, id)
		}
		getAnalysis := func(ctx context.Context, id string) (spotify.AudioAnalysis, error) {
			return spotify.GetTrackAnalysis(ctx, ring, id)
		}

		features := spotify.LoopUntilOk(ctx, logger, getFeatures, track.ID)
		analysis := spotify.LoopUntilOk(ctx, logger, getAnalysis, track.ID)

		featuresRow := spotify.ExtractFeaturesCsv(analysis, features)
		featuresMu.Lock()
		err = featuresWriter.Write(featuresRow)
		featuresMu.Unlock()
		if err != nil {
			logger.Error("write features row failed", "track_id", track.ID, "err", err)
		}
	}
	return nil
}

// Command spotify-crawler runs one stage of the BFS artist/album/track
// crawler against the Spotify Web API.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgjin/spotify-crawler/internal/config"
	"github.com/jgjin/spotify-crawler/internal/crawl"
	"github.com/jgjin/spotify-crawler/internal/spotify"
)

var (
	flagSeedsFile    string
	flagLimit        int
	flagWorkers      int
	flagIn           string
	flagOut          string
	flagFeaturesOut  string
	flagWithFeatures bool
	flagWithTracks   bool
	flagTracksOut    string
)

func main() {
	root := &cobra.Command{
		Use:           "spotify-crawler",
		Short:         "Breadth-first crawler for the Spotify Web API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	artistsCmd := &cobra.Command{
		Use:   "artists",
		Short: "Seed-expand artists via the related-artists graph",
		RunE:  runArtists,
	}
	artistsCmd.Flags().StringVar(&flagSeedsFile, "seeds", "seed_artists.txt", "Seed artist names, one per line")
	artistsCmd.Flags().IntVar(&flagLimit, "limit", 1000, "Target number of artists to crawl")
	artistsCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Worker count (0 = logical CPU count)")
	artistsCmd.Flags().StringVar(&flagOut, "out", "artists_crawled.csv", "Output artist CSV path")

	albumsCmd := &cobra.Command{
		Use:   "albums",
		Short: "Enumerate every album for each crawled artist",
		RunE:  runAlbums,
	}
	albumsCmd.Flags().StringVar(&flagIn, "in", "artists_crawled.csv", "Input artist CSV path")
	albumsCmd.Flags().StringVar(&flagOut, "out", "albums_crawled.csv", "Output album CSV path")
	albumsCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Worker count (0 = logical CPU count)")
	albumsCmd.Flags().BoolVar(&flagWithTracks, "with-tracks", false, "Also crawl each album's full track listing")
	albumsCmd.Flags().StringVar(&flagTracksOut, "tracks-out", "album_tracks_crawled.csv", "Output album-track CSV path (with --with-tracks)")

	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "Fetch top tracks (and optionally audio features) per artist",
		RunE:  runTracks,
	}
	tracksCmd.Flags().StringVar(&flagIn, "in", "artists_crawled.csv", "Input artist CSV path")
	tracksCmd.Flags().StringVar(&flagOut, "out", "tracks_crawled.csv", "Output track CSV path")
	tracksCmd.Flags().StringVar(&flagFeaturesOut, "features-out", "features_crawled.csv", "Output feature CSV path (with --with-features)")
	tracksCmd.Flags().BoolVar(&flagWithFeatures, "with-features", false, "Also fetch and reduce audio analysis/features per track")
	tracksCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Worker count (0 = logical CPU count)")

	root.AddCommand(artistsCmd, albumsCmd, tracksCmd)

	if err := root.Execute(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

func newRing(ctx context.Context, cfg config.Config, logger *slog.Logger) (*spotify.Ring, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return spotify.NewRing(spotify.Config{
		ClientsFile: cfg.ClientsFile,
		ProxiesFile: cfg.ProxiesFile,
		UseProxies:  cfg.UseProxies,
		GlobalRPS:   cfg.GlobalRPS,
		Logger:      logger,
	})
}

func readSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds file %s: %w", path, err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	return seeds, scanner.Err()
}

func runArtists(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg)

	ring, err := newRing(ctx, cfg, logger)
	if err != nil {
		return err
	}

	seeds, err := readSeeds(flagSeedsFile)
	if err != nil {
		return err
	}

	return crawl.CrawlArtists(ctx, ring, crawl.ArtistsConfig{
		Seeds:   seeds,
		Limit:   flagLimit,
		Workers: flagWorkers,
		OutPath: flagOut,
		Logger:  logger,
	})
}

func runAlbums(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg)

	ring, err := newRing(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return crawl.CrawlAlbums(ctx, ring, crawl.AlbumsConfig{
		InPath:        flagIn,
		OutPath:       flagOut,
		Workers:       flagWorkers,
		WithTracks:    flagWithTracks,
		TracksOutPath: flagTracksOut,
		Logger:        logger,
	})
}

func runTracks(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg)

	ring, err := newRing(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return crawl.CrawlTracks(ctx, ring, crawl.TracksConfig{
		InPath:          flagIn,
		OutPath:         flagOut,
		Workers:         flagWorkers,
		WithFeatures:    flagWithFeatures,
		FeaturesOutPath: flagFeaturesOut,
		Logger:          logger,
	})
}

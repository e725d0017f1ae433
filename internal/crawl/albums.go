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

// AlbumsConfig configures the per-artist album-enumeration stage.
type AlbumsConfig struct {
	InPath  string
	OutPath string
	Workers int
	// WithTracks additionally enumerates each album's full track listing
	// (the supplemented AlbumTrackCsv extension) into TracksOutPath.
	WithTracks    bool
	TracksOutPath string
	Logger        *slog.Logger
}

// CrawlAlbums reads the artists CSV produced by the BFS stage and, for
// each artist, pages through every album across all paging cursors.
// Workers are a fixed pool of size Workers (defaulting
// to the logical CPU count); every artist row is read up front and
// queued on a channel buffered to hold all of them, so the hand-off to
// the workers never blocks.
func CrawlAlbums(ctx context.Context, ring *spotify.Ring, cfg AlbumsConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString(), "stage", "albums")

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	artists, err := csvio.ReadRows[spotify.ArtistCsv](cfg.InPath)
	if err != nil {
		return err
	}

	albumWriter, err := csvio.OpenWriter[spotify.AlbumCsv](cfg.OutPath)
	if err != nil {
		return err
	}
	defer albumWriter.Close()

	var trackWriter *csvio.Writer
	if cfg.WithTracks {
		trackWriter, err = csvio.OpenWriter[spotify.AlbumTrackCsv](cfg.TracksOutPath)
		if err != nil {
			return err
		}
		defer trackWriter.Close()
	}

	queue := make(chan spotify.ArtistCsv, len(artists))
	for _, a := range artists {
		queue <- a
	}
	close(queue)

	var albumMu, trackMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for artist := range queue {
				if err := crawlArtistAlbums(gctx, ring, artist, albumWriter, &albumMu, trackWriter, &trackMu, logger); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func crawlArtistAlbums(
	ctx context.Context,
	ring *spotify.Ring,
	artist spotify.ArtistCsv,
	albumWriter *csvio.Writer,
	albumMu *sync.Mutex,
	trackWriter *csvio.Writer,
	trackMu *sync.Mutex,
	logger *slog.Logger,
) error {
	getAlbums := func(ctx context.Context, id string) (spotify.Paging[spotify.AlbumSimple], error) {
		return spotify.GetArtistAlbums(ctx, ring, id)
	}
	getNextAlbumPage := func(ctx context.Context, next string) (spotify.Paging[spotify.AlbumSimple], error) {
		return spotify.GetNextPaging[spotify.AlbumSimple](ctx, ring, next)
	}

	page := spotify.LoopUntilOk(ctx, logger, getAlbums, artist.ID)

	for {
		for _, album := range page.Items {
			row := spotify.AlbumCsvExtractFrom(album, artist.ID, artist.Genres)
			albumMu.Lock()
			err := albumWriter.Write(row)
			albumMu.Unlock()
			if err != nil {
				logger.Error("write album row failed", "album_id", album.ID, "err", err)
			}

			if trackWriter != nil {
				if err := crawlAlbumTracks(ctx, ring, album, artist.Genres, trackWriter, trackMu, logger); err != nil {
					return err
				}
			}
		}

		if page.Next == "" {
			return nil
		}
		page = spotify.LoopUntilOk(ctx, logger, getNextAlbumPage, page.Next)
	}
}

func crawlAlbumTracks(
	ctx context.Context,
	ring *spotify.Ring,
	album spotify.AlbumSimple,
	originGenres string,
	trackWriter *csvio.Writer,
	trackMu *sync.Mutex,
	logger *slog.Logger,
) error {
	getAlbumTracks := func(ctx context.Context, id string) (spotify.Paging[spotify.TrackSimple], error) {
		return spotify.GetAlbumTracks(ctx, ring, id)
	}
	getNextTrackPage := func(ctx context.Context, next string) (spotify.Paging[spotify.TrackSimple], error) {
		return spotify.GetNextPaging[spotify.TrackSimple](ctx, ring, next)
	}

	page := spotify.LoopUntilOk(ctx, logger, getAlbumTracks, album.ID)
	for {
		for _, track := range page.Items {
			row := spotify.AlbumTrackCsvExtractFrom(track, album.ID, originGenres)
			trackMu.Lock()
			err := trackWriter.Write(row)
			trackMu.Unlock()
			if err != nil {
				logger.Error("write album track row failed", "track_id", track.ID, "err", err)
			}
		}
		if page.Next == "" {
			return nil
		}
		page = spotify.LoopUntilOk(ctx, logger, getNextTrackPage, page.Next)
	}
}

package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jgjin/spotify-crawler/internal/csvio"
	"github.com/jgjin/spotify-crawler/internal/spotify"
)

func newMockAlbumProvider(t *testing.T, handler http.HandlerFunc) *spotify.Ring {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)
	t.Cleanup(spotify.SetTokenURLForTesting(tokenSrv.URL))

	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)
	t.Cleanup(spotify.SetAPIBaseForTesting(api.URL))

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

func writeArtistsCSV(t *testing.T, artists []spotify.ArtistCsv) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artists.csv")
	w, err := csvio.OpenWriter[spotify.ArtistCsv](path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	for _, a := range artists {
		if err := w.Write(a); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	w.Close()
	return path
}

func albumPage(n, offset int, next string) spotify.Paging[spotify.AlbumSimple] {
	items := make([]spotify.AlbumSimple, n)
	for i := range items {
		items[i] = spotify.AlbumSimple{ID: fmt.Sprintf("alb-%d-%d", offset, i), Name: "album"}
	}
	return spotify.Paging[spotify.AlbumSimple]{Items: items, Next: next}
}

// TestCrawlAlbums_PaginationCompleteness covers the pagination-across-
// cursors scenario: three pages of 50, 50, and 7 items must together
// produce exactly 107 persisted rows for a single artist.
func TestCrawlAlbums_PaginationCompleteness(t *testing.T) {
	// The first response's Next cursor must be an absolute URL back into
	// this same mock server, so the server is started unstarted and its
	// handler (which needs srv.URL) is attached just before Start.
	srv := httptest.NewUnstartedServer(nil)
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/artists/") && strings.HasSuffix(r.URL.Path, "/albums"):
			json.NewEncoder(w).Encode(albumPage(50, 0, srv.URL+"/page2"))
		case r.URL.Path == "/page2":
			json.NewEncoder(w).Encode(albumPage(50, 50, srv.URL+"/page3"))
		case r.URL.Path == "/page3":
			json.NewEncoder(w).Encode(albumPage(7, 100, ""))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srv.Start()
	t.Cleanup(srv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)
	t.Cleanup(spotify.SetTokenURLForTesting(tokenSrv.URL))
	t.Cleanup(spotify.SetAPIBaseForTesting(srv.URL))

	clientsPath := filepath.Join(t.TempDir(), "clients.csv")
	cf, err := os.Create(clientsPath)
	if err != nil {
		t.Fatalf("create clients.csv: %v", err)
	}
	fmt.Fprintln(cf, "name,id,secret")
	fmt.Fprintln(cf, "cred-0,id-0,secret-0")
	cf.Close()

	ring, err := spotify.NewRing(spotify.Config{ClientsFile: clientsPath})
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}

	artistsPath := writeArtistsCSV(t, []spotify.ArtistCsv{{ID: "artist-1", Genres: "rock"}})
	out := filepath.Join(t.TempDir(), "albums.csv")

	err = CrawlAlbums(context.Background(), ring, AlbumsConfig{
		InPath:  artistsPath,
		OutPath: out,
		Workers: 1,
	})
	if err != nil {
		t.Fatalf("CrawlAlbums: %v", err)
	}

	rows, err := csvio.ReadRows[spotify.AlbumCsv](out)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 107 {
		t.Fatalf("got %d album rows, want 107", len(rows))
	}
	for _, row := range rows {
		if row.OriginArtist != "artist-1" || row.OriginArtistGenres != "rock" {
			t.Fatalf("row missing origin context: %+v", row)
		}
	}
}

// TestCrawlAlbums_WithTracksExtension covers the optional per-album
// track enumeration extension: one artist with a single album whose
// single page holds one track must emit exactly one AlbumTrackCsv row.
func TestCrawlAlbums_WithTracksExtension(t *testing.T) {
	ring := newMockAlbumProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/artists/") && strings.HasSuffix(r.URL.Path, "/albums"):
			json.NewEncoder(w).Encode(albumPage(1, 0, ""))
		case strings.Contains(r.URL.Path, "/albums/") && strings.HasSuffix(r.URL.Path, "/tracks"):
			json.NewEncoder(w).Encode(spotify.Paging[spotify.TrackSimple]{
				Items: []spotify.TrackSimple{{ID: "t1", Name: "track one", TrackNumber: 1}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	artistsPath := writeArtistsCSV(t, []spotify.ArtistCsv{{ID: "artist-1", Genres: "rock"}})
	albumsOut := filepath.Join(t.TempDir(), "albums.csv")
	tracksOut := filepath.Join(t.TempDir(), "album_tracks.csv")

	err := CrawlAlbums(context.Background(), ring, AlbumsConfig{
		InPath:        artistsPath,
		OutPath:       albumsOut,
		Workers:       1,
		WithTracks:    true,
		TracksOutPath: tracksOut,
	})
	if err != nil {
		t.Fatalf("CrawlAlbums: %v", err)
	}

	rows, err := csvio.ReadRows[spotify.AlbumTrackCsv](tracksOut)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("got %+v, want exactly one row for track t1", rows)
	}
}

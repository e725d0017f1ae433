package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestBulkFetchHelpers_SmokeAgainstMockEndpoints exercises every
// id-batch bulk-fetch helper against a single mocked provider,
// routing by path suffix the way the real provider splits these
// endpoints.
func TestBulkFetchHelpers_SmokeAgainstMockEndpoints(t *testing.T) {
	ring, _ := newTestRing(t, 1)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case hasSuffix(r.URL.Path, "/artists/solo-id"):
			json.NewEncoder(w).Encode(ArtistFull{ID: "solo-id", Name: "Solo"})
		case hasSuffix(r.URL.Path, "/artists"):
			json.NewEncoder(w).Encode(artistsEnvelope{Artists: []ArtistFull{{ID: "a1"}, {ID: "a2"}}})
		case hasSuffix(r.URL.Path, "/albums/solo-id"):
			json.NewEncoder(w).Encode(AlbumFull{ID: "solo-id", Name: "Solo Album"})
		case hasSuffix(r.URL.Path, "/albums"):
			json.NewEncoder(w).Encode(albumsEnvelope{Albums: []AlbumFull{{ID: "al1"}, {ID: "al2"}}})
		case hasSuffix(r.URL.Path, "/tracks"):
			json.NewEncoder(w).Encode(tracksEnvelope{Tracks: []TrackFull{{ID: "t1"}, {ID: "t2"}}})
		case hasSuffix(r.URL.Path, "/audio-features"):
			json.NewEncoder(w).Encode(audioFeaturesEnvelope{AudioFeatures: []AudioFeatures{{ID: "t1"}, {ID: "t2"}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()
	restore := SetAPIBaseForTesting(api.URL)
	defer restore()

	ctx := context.Background()

	if got, err := GetArtist(ctx, ring, "solo-id"); err != nil || got.ID != "solo-id" {
		t.Fatalf("GetArtist: got (%+v, %v), want id=solo-id", got, err)
	}
	if got, err := GetArtists(ctx, ring, []string{"a1", "a2"}); err != nil || len(got) != 2 {
		t.Fatalf("GetArtists: got (%+v, %v), want 2 artists", got, err)
	}
	if got, err := GetAlbum(ctx, ring, "solo-id"); err != nil || got.ID != "solo-id" {
		t.Fatalf("GetAlbum: got (%+v, %v), want id=solo-id", got, err)
	}
	if got, err := GetAlbums(ctx, ring, []string{"al1", "al2"}); err != nil || len(got) != 2 {
		t.Fatalf("GetAlbums: got (%+v, %v), want 2 albums", got, err)
	}
	if got, err := GetTracks(ctx, ring, []string{"t1", "t2"}); err != nil || len(got) != 2 {
		t.Fatalf("GetTracks: got (%+v, %v), want 2 tracks", got, err)
	}
	if got, err := GetTracksFeatures(ctx, ring, []string{"t1", "t2"}); err != nil || len(got) != 2 {
		t.Fatalf("GetTracksFeatures: got (%+v, %v), want 2 feature sets", got, err)
	}
}

func hasSuffix(path, suffix string) bool {
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}

package spotify

import (
	"context"
	"net/url"
	"strings"
)

// apiBase is a var (not a const) so tests can point it at an
// httptest.Server instead of the real provider.
var apiBase = "https://api.spotify.com/v1"

// SetAPIBaseForTesting overrides the provider base URL and returns a
// restore function; intended for tests outside this package that need
// to point the bulk-fetch helpers at an httptest.Server.
func SetAPIBaseForTesting(base string) (restore func()) {
	old := apiBase
	apiBase = base
	return func() { apiBase = old }
}

type artistsEnvelope struct {
	Artists []ArtistFull `json:"artists"`
}

type tracksEnvelope struct {
	Tracks []TrackFull `json:"tracks"`
}

type albumsEnvelope struct {
	Albums []AlbumFull `json:"albums"`
}

type audioFeaturesEnvelope struct {
	AudioFeatures []AudioFeatures `json:"audio_features"`
}

// SearchArtists runs Search restricted to artists and returns the first
// hit, which is all the seed-expansion step needs.
func SearchArtists(ctx context.Context, ring *Ring, name string) (ArtistFull, error) {
	page, err := Search[ArtistFull](ctx, ring, name, "artist")
	if err != nil {
		return ArtistFull{}, err
	}
	if len(page.Items) == 0 {
		return ArtistFull{}, &UnexpectedStatusError{URL: "search:artist:" + name, Code: 0}
	}
	return page.Items[0], nil
}

// GetArtist fetches a single artist by id.
func GetArtist(ctx context.Context, ring *Ring, id string) (ArtistFull, error) {
	return GetWithRetry[ArtistFull](ctx, ring, apiBase+"/artists/"+url.PathEscape(id))
}

// GetArtists bulk-fetches up to 50 artists by id in one request; not on
// the hot BFS path, which fetches related artists one call at a time,
// but available for a future batched-enrichment pass.
func GetArtists(ctx context.Context, ring *Ring, ids []string) ([]ArtistFull, error) {
	out, err := GetWithRetry[artistsEnvelope](ctx, ring, apiBase+"/artists?ids="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}
	return out.Artists, nil
}

// GetArtistRelatedArtists lists the artists Spotify considers related to
// id.
func GetArtistRelatedArtists(ctx context.Context, ring *Ring, id string) ([]ArtistFull, error) {
	out, err := GetWithRetry[artistsEnvelope](ctx, ring, apiBase+"/artists/"+url.PathEscape(id)+"/related-artists")
	if err != nil {
		return nil, err
	}
	return out.Artists, nil
}

// GetArtistAlbums fetches the first page of id's albums, scoped to
// album/single/compilation groups in the US market.
func GetArtistAlbums(ctx context.Context, ring *Ring, id string) (Paging[AlbumSimple], error) {
	target := apiBase + "/artists/" + url.PathEscape(id) + "/albums?include_groups=album,single,compilation&country=US"
	return GetWithRetry[Paging[AlbumSimple]](ctx, ring, target)
}

// GetArtistTopTracks lists id's top tracks in the US market.
func GetArtistTopTracks(ctx context.Context, ring *Ring, id string) ([]TrackFull, error) {
	out, err := GetWithRetry[tracksEnvelope](ctx, ring, apiBase+"/artists/"+url.PathEscape(id)+"/top-tracks?country=US")
	if err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// GetTrackFeatures fetches a single track's audio features.
func GetTrackFeatures(ctx context.Context, ring *Ring, id string) (AudioFeatures, error) {
	return GetWithRetry[AudioFeatures](ctx, ring, apiBase+"/audio-features/"+url.PathEscape(id))
}

// GetTrackAnalysis fetches a single track's audio analysis.
func GetTrackAnalysis(ctx context.Context, ring *Ring, id string) (AudioAnalysis, error) {
	return GetWithRetry[AudioAnalysis](ctx, ring, apiBase+"/audio-analysis/"+url.PathEscape(id))
}

// GetTracksFeatures bulk-fetches up to 100 tracks' audio features in one
// request; not on the per-track crawl path, which needs the
// analysis/features pair per track anyway, but available for a future
// batched-enrichment pass.
func GetTracksFeatures(ctx context.Context, ring *Ring, ids []string) ([]AudioFeatures, error) {
	out, err := GetWithRetry[audioFeaturesEnvelope](ctx, ring, apiBase+"/audio-features?ids="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}
	return out.AudioFeatures, nil
}

// GetTracks bulk-fetches up to 50 tracks by id in one request.
func GetTracks(ctx context.Context, ring *Ring, ids []string) ([]TrackFull, error) {
	out, err := GetWithRetry[tracksEnvelope](ctx, ring, apiBase+"/tracks?ids="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// AlbumFull is the full album object, trimmed to the fields the
// --with-tracks album extension consumes.
type AlbumFull struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Tracks Paging[TrackSimple] `json:"tracks"`
}

// GetAlbum fetches a single album, including its first page of tracks.
func GetAlbum(ctx context.Context, ring *Ring, id string) (AlbumFull, error) {
	return GetWithRetry[AlbumFull](ctx, ring, apiBase+"/albums/"+url.PathEscape(id))
}

// GetAlbums bulk-fetches up to 20 albums by id in one request.
func GetAlbums(ctx context.Context, ring *Ring, ids []string) ([]AlbumFull, error) {
	out, err := GetWithRetry[albumsEnvelope](ctx, ring, apiBase+"/albums?ids="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}
	return out.Albums, nil
}

// GetAlbumTracks fetches the first page of an album's track listing,
// backing the --with-tracks album-crawl option; later pages are fetched
// by following Next with GetNextPaging.
func GetAlbumTracks(ctx context.Context, ring *Ring, id string) (Paging[TrackSimple], error) {
	return GetWithRetry[Paging[TrackSimple]](ctx, ring, apiBase+"/albums/"+url.PathEscape(id)+"/tracks")
}

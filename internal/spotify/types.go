// Package spotify implements the credentialed-fetch engine: a rotating
// ring of Spotify Web API client credentials (and optional egress
// proxies), a status-code-directed retrying GET, and the typed wire
// objects those two needs deserialize into.
package spotify

// Image is a Spotify artwork entry; only URL is consumed downstream.
type Image struct {
	Height int    `json:"height"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
}

// Paging is the provider's cursor-paginated envelope for list endpoints.
type Paging[T any] struct {
	Href     string `json:"href"`
	Items    []T    `json:"items"`
	Limit    int    `json:"limit"`
	Next     string `json:"next"`
	Offset   int    `json:"offset"`
	Previous string `json:"previous"`
	Total    int    `json:"total"`
}

// ArtistSimple is the artist projection embedded in track/album payloads.
type ArtistSimple struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Href string `json:"href"`
	URI  string `json:"uri"`
}

// ArtistFull is the full artist object returned by /artists/{id} and
// friends; only the fields the CSV projections consume are present.
type ArtistFull struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Href       string   `json:"href"`
	URI        string   `json:"uri"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Images     []Image  `json:"images"`
}

// ArtistCsv is the artist row persisted after the BFS discovery stage.
type ArtistCsv struct {
	Href   string `csv:"href"`
	ID     string `csv:"id"`
	Name   string `csv:"name"`
	URI    string `csv:"uri"`
	Genres string `csv:"genres"`
}

// ArtistCsvFromFull projects an ArtistFull to the row shape the BFS
// crawler emits, joining genres into a single delimited field for CSV.
func ArtistCsvFromFull(a ArtistFull) ArtistCsv {
	return ArtistCsv{
		Href:   a.Href,
		ID:     a.ID,
		Name:   a.Name,
		URI:    a.URI,
		Genres: joinGenres(a.Genres),
	}
}

// AlbumSimple is the album projection returned from an artist's albums
// listing and embedded in track payloads.
type AlbumSimple struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	AlbumGroup           string         `json:"album_group"`
	AlbumType            string         `json:"album_type"`
	ReleaseDate          string         `json:"release_date"`
	ReleaseDatePrecision string         `json:"release_date_precision"`
	Images               []Image        `json:"images"`
	Artists              []ArtistSimple `json:"artists"`
}

// AlbumCsv is the album row persisted by the album-enumeration stage.
type AlbumCsv struct {
	OriginArtist         string `csv:"origin_artist"`
	OriginArtistGenres   string `csv:"origin_artist_genres"`
	AlbumGroup           string `csv:"album_group"`
	AlbumType            string `csv:"album_type"`
	ID                   string `csv:"id"`
	ImageURL             string `csv:"image_url"`
	Name                 string `csv:"name"`
	ReleaseDate          string `csv:"release_date"`
	ReleaseDatePrecision string `csv:"release_date_precision"`
}

// AlbumCsvExtractFrom projects an AlbumSimple plus its crawling context
// (the originating artist's id and genre string) to the persisted row.
func AlbumCsvExtractFrom(album AlbumSimple, originArtistID, originArtistGenres string) AlbumCsv {
	var imageURL string
	if len(album.Images) > 0 {
		imageURL = album.Images[0].URL
	}
	return AlbumCsv{
		OriginArtist:         originArtistID,
		OriginArtistGenres:   originArtistGenres,
		AlbumGroup:           album.AlbumGroup,
		AlbumType:            album.AlbumType,
		ID:                   album.ID,
		ImageURL:             imageURL,
		Name:                 album.Name,
		ReleaseDate:          album.ReleaseDate,
		ReleaseDatePrecision: album.ReleaseDatePrecision,
	}
}

// TrackSimple is the track projection embedded in an album's track
// listing (AlbumFull.Tracks).
type TrackSimple struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	TrackNumber int            `json:"track_number"`
	Artists     []ArtistSimple `json:"artists"`
}

// TrackFull is the track object returned by top-tracks/search/track
// lookups; embeds the owning album.
type TrackFull struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	TrackNumber int         `json:"track_number"`
	Popularity  int         `json:"popularity"`
	Album       AlbumSimple `json:"album"`
}

// TrackCsv2 is the track row persisted by the per-artist track crawl,
// keyed by originating artist.
type TrackCsv2 struct {
	TrackID            string `csv:"track_id"`
	OriginAlbum        string `csv:"origin_album"`
	OriginAlbumName    string `csv:"origin_album_name"`
	OriginArtist       string `csv:"origin_artist"`
	OriginArtistName   string `csv:"origin_artist_name"`
	OriginArtistGenres string `csv:"origin_artist_genres"`
	TrackName          string `csv:"track_name"`
	TrackPopularity    int    `csv:"track_popularity"`
}

// TrackCsv2ExtractFrom projects a TrackFull plus its originating
// ArtistCsv row to the persisted track row.
func TrackCsv2ExtractFrom(track TrackFull, originArtist ArtistCsv) TrackCsv2 {
	return TrackCsv2{
		TrackID:            track.ID,
		OriginAlbum:        track.Album.ID,
		OriginAlbumName:    track.Album.Name,
		OriginArtist:       originArtist.ID,
		OriginArtistName:   originArtist.Name,
		OriginArtistGenres: originArtist.Genres,
		TrackName:          track.Name,
		TrackPopularity:    track.Popularity,
	}
}

// AlbumTrackCsv is the supplementary track row keyed by originating
// album rather than originating artist (distinct from TrackCsv2),
// emitted by the album crawler's optional
// --with-tracks pass.
type AlbumTrackCsv struct {
	OriginAlbum                     string `csv:"origin_album"`
	OriginAlbumOrOriginArtistGenres string `csv:"origin_album_or_origin_artist_genres"`
	ID                              string `csv:"id"`
	Name                            string `csv:"name"`
	TrackNumber                     int    `csv:"track_number"`
}

// AlbumTrackCsvExtractFrom projects a TrackSimple plus its crawling
// context to the persisted row.
func AlbumTrackCsvExtractFrom(track TrackSimple, originAlbum, originGenres string) AlbumTrackCsv {
	return AlbumTrackCsv{
		OriginAlbum:                     originAlbum,
		OriginAlbumOrOriginArtistGenres: originGenres,
		ID:                              track.ID,
		Name:                            track.Name,
		TrackNumber:                     track.TrackNumber,
	}
}

func joinGenres(genres []string) string {
	out := ""
	for i, g := range genres {
		if i > 0 {
			out += ";"
		}
		out += g
	}
	return out
}

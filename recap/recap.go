// Package recap computes the aggregate listening views (top albums, top
// genres) from Spotify top-list pages. Everything here is pure: no
// network, no errors, absent fields simply contribute nothing.
package recap

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

type ArtistRef struct {
	Name string `json:"name"`
}

type AlbumRef struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []ArtistRef       `json:"artists"`
	Images       []Image           `json:"images"`
	ReleaseDate  string            `json:"release_date"`
	TotalTracks  int               `json:"total_tracks"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type Track struct {
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"`
	Album      AlbumRef `json:"album"`
}

type Artist struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// TrackPage and ArtistPage mirror the `items` wrapper of Spotify's
// paginated top-list responses.
type TrackPage struct {
	Items []Track `json:"items"`
}

type ArtistPage struct {
	Items []Artist `json:"items"`
}

type TrackSummary struct {
	Name       string `json:"name"`
	Popularity int    `json:"popularity"`
}

type AlbumSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Artists     []string       `json:"artists"`
	Images      []Image        `json:"images"`
	ReleaseDate string         `json:"release_date"`
	TotalTracks int            `json:"total_tracks"`
	ExternalURL string         `json:"external_url"`
	Count       int            `json:"count"`
	Tracks      []TrackSummary `json:"tracks"`
}

// TopAlbums groups a track list by album id and returns up to ten albums
// ordered by how often they appear. Tracks without an album id are
// skipped. The sort is stable, so albums with equal counts keep their
// first-seen order.
func TopAlbums(tracks []Track) []AlbumSummary {
	index := make(map[string]int)
	albums := []AlbumSummary{}

	for _, track := range tracks {
		album := track.Album
		if album.ID == "" {
			continue
		}

		i, seen := index[album.ID]
		if !seen {
			i = len(albums)
			index[album.ID] = i
			albums = append(albums, AlbumSummary{
				ID:          album.ID,
				Name:        album.Name,
				Artists:     artistNames(album.Artists),
				Images:      images(album.Images),
				ReleaseDate: album.ReleaseDate,
				TotalTracks: album.TotalTracks,
				ExternalURL: album.ExternalURLs["spotify"],
				Tracks:      []TrackSummary{},
			})
		}

		albums[i].Count++
		albums[i].Tracks = append(albums[i].Tracks, TrackSummary{
			Name:       track.Name,
			Popularity: track.Popularity,
		})
	}

	sort.SliceStable(albums, func(a, b int) bool {
		return albums[a].Count > albums[b].Count
	})
	if len(albums) > 10 {
		albums = albums[:10]
	}
	return albums
}

// GenreCount is one genre with its occurrence count.
type GenreCount struct {
	Genre string
	Count int
}

// GenreCounts is an ordered genre→count mapping. It marshals as a JSON
// object whose keys appear in slice order, which plain maps cannot do.
type GenreCounts []GenreCount

// TopGenres counts every genre tag across an artist list and returns the
// ten most frequent, ties broken by first-seen order.
func TopGenres(artists []Artist) GenreCounts {
	index := make(map[string]int)
	counts := GenreCounts{}

	for _, artist := range artists {
		for _, genre := range artist.Genres {
			if i, seen := index[genre]; seen {
				counts[i].Count++
			} else {
				index[genre] = len(counts)
				counts = append(counts, GenreCount{Genre: genre, Count: 1})
			}
		}
	}

	sort.SliceStable(counts, func(a, b int) bool {
		return counts[a].Count > counts[b].Count
	})
	if len(counts) > 10 {
		counts = counts[:10]
	}
	return counts
}

func (g GenreCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Genre)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(entry.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func artistNames(artists []ArtistRef) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return names
}

func images(in []Image) []Image {
	if in == nil {
		return []Image{}
	}
	return in
}

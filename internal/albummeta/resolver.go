// Package albummeta resolves artist/album metadata from public music
// catalogs: a MusicBrainz release-group search for identification, Cover
// Art Archive probes for cover art, and search links into the major
// streaming catalogs. It is a stateless, read-only enrichment with no
// retry logic.
package albummeta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultMusicBrainzURL is the public MusicBrainz API base.
	DefaultMusicBrainzURL = "https://musicbrainz.org/ws/2"

	// DefaultCoverArtURL is the public Cover Art Archive base.
	DefaultCoverArtURL = "https://coverartarchive.org"

	// userAgent identifies this service per MusicBrainz etiquette.
	userAgent = "ticketdrop-session-api/1.0 (hello@ticketdrop.example)"
)

// coverSizes are probed largest-first before falling back to the
// un-sized front image.
var coverSizes = []string{"1200", "1000", "800", "500", "250"}

// Meta is the resolved metadata for one artist/album pair.
type Meta struct {
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	CoverURL string `json:"coverUrl"` // empty if no cover was found
	Links    Links  `json:"links"`
	Source   string `json:"source"`
}

// Links are catalog search URLs for the artist/album pair.
type Links struct {
	Spotify      string `json:"spotifySearchUrl"`
	YouTubeMusic string `json:"ytMusicSearchUrl"`
	Discogs      string `json:"discogsSearchUrl"`
}

// Resolver queries the public catalogs.
type Resolver struct {
	musicBrainzURL string
	coverArtURL    string
	client         *http.Client
}

// NewResolver creates a resolver against the public catalog endpoints.
// Empty base URLs select the public defaults.
func NewResolver(musicBrainzURL, coverArtURL string) *Resolver {
	if musicBrainzURL == "" {
		musicBrainzURL = DefaultMusicBrainzURL
	}
	if coverArtURL == "" {
		coverArtURL = DefaultCoverArtURL
	}
	return &Resolver{
		musicBrainzURL: musicBrainzURL,
		coverArtURL:    coverArtURL,
		client:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve looks up the release group for artist/album and probes for the
// largest available cover image. The search links are always populated;
// a missing cover leaves CoverURL empty rather than failing.
func (r *Resolver) Resolve(ctx context.Context, artist, album string) (*Meta, error) {
	meta := &Meta{
		Artist: artist,
		Album:  album,
		Links:  searchLinks(artist, album),
		Source: "musicbrainz+coverartarchive",
	}

	rgID, err := r.findReleaseGroup(ctx, artist, album)
	if err != nil {
		return nil, err
	}
	if rgID != "" {
		meta.CoverURL = r.probeCover(ctx, rgID)
	}
	return meta, nil
}

// findReleaseGroup returns the MBID of the best-matching release group,
// or "" when the search has no results.
func (r *Resolver) findReleaseGroup(ctx context.Context, artist, album string) (string, error) {
	query := fmt.Sprintf("releasegroup:%q AND artist:%q", album, artist)
	endpoint := fmt.Sprintf("%s/release-group?query=%s&fmt=json&limit=1",
		r.musicBrainzURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("albummeta: build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("albummeta: musicbrainz search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("albummeta: musicbrainz status %d", resp.StatusCode)
	}

	var result struct {
		ReleaseGroups []struct {
			ID string `json:"id"`
		} `json:"release-groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("albummeta: decode search response: %w", err)
	}
	if len(result.ReleaseGroups) == 0 {
		return "", nil
	}
	return result.ReleaseGroups[0].ID, nil
}

// probeCover HEAD-probes the sized front images largest-first, then the
// un-sized front. Returns "" when no image responds OK.
func (r *Resolver) probeCover(ctx context.Context, releaseGroupID string) string {
	for _, size := range coverSizes {
		probe := fmt.Sprintf("%s/release-group/%s/front-%s", r.coverArtURL, releaseGroupID, size)
		if r.headOK(ctx, probe) {
			return probe
		}
	}
	fallback := fmt.Sprintf("%s/release-group/%s/front", r.coverArtURL, releaseGroupID)
	if r.headOK(ctx, fallback) {
		return fallback
	}
	return ""
}

func (r *Resolver) headOK(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// searchLinks builds catalog search URLs for the pair.
func searchLinks(artist, album string) Links {
	q := url.QueryEscape(artist + " " + album)
	return Links{
		Spotify:      "https://open.spotify.com/search/" + q,
		YouTubeMusic: "https://music.youtube.com/search?q=" + q,
		Discogs:      "https://www.discogs.com/search/?q=" + q + "&type=all",
	}
}

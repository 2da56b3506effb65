package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/disgoorg/disgolink/v3/lavalink"

	"github.com/avsenik/tonbot/internal/modules/music/application"
	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

// Reference shapes the adapter recognizes without a network round trip.
var (
	mediaIDPattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	collectionIDPattern = regexp.MustCompile(`^(PL|UU|LL|FL|OL)[a-zA-Z0-9_-]{10,}$`)
)

// mediaHosts are the hosts whose watch URLs carry a direct media reference.
var mediaHosts = map[string]bool{
	"youtube.com":        true,
	"www.youtube.com":    true,
	"m.youtube.com":      true,
	"music.youtube.com":  true,
	"gaming.youtube.com": true,
}

// IsMediaReference reports whether input is a recognized single-media URL.
func (c *LavalinkAdapter) IsMediaReference(input string) bool {
	u, err := url.Parse(input)
	if err != nil || !u.IsAbs() {
		return false
	}

	if u.Host == "youtu.be" {
		id := strings.TrimPrefix(u.Path, "/")
		return mediaIDPattern.MatchString(id)
	}

	if !mediaHosts[u.Host] {
		return false
	}

	switch {
	case u.Path == "/watch":
		return mediaIDPattern.MatchString(u.Query().Get("v"))
	case strings.HasPrefix(u.Path, "/embed/"),
		strings.HasPrefix(u.Path, "/shorts/"),
		strings.HasPrefix(u.Path, "/live/"),
		strings.HasPrefix(u.Path, "/v/"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		return len(parts) == 2 && mediaIDPattern.MatchString(parts[1])
	default:
		return false
	}
}

// IsCollectionReference reports whether input carries a collection identifier.
// Autogenerated mixes are not listable and do not count.
func (c *LavalinkAdapter) IsCollectionReference(input string) bool {
	u, err := url.Parse(input)
	if err != nil || !u.IsAbs() {
		return false
	}
	if u.Host != "youtu.be" && !mediaHosts[u.Host] {
		return false
	}
	return collectionIDPattern.MatchString(u.Query().Get("list"))
}

// MediaInfo fetches title and duration for a single media locator.
func (c *LavalinkAdapter) MediaInfo(
	ctx context.Context,
	locator string,
) (*ports.MediaInfo, error) {
	track, err := c.loadSingle(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &ports.MediaInfo{
		Title:    track.Info.Title,
		Duration: trackDuration(track.Info),
	}, nil
}

// CollectionInfo fetches the full listing for a collection locator. The
// listing is requested by collection ID so that member and offset parameters
// on the original URL do not truncate it.
func (c *LavalinkAdapter) CollectionInfo(
	ctx context.Context,
	locator string,
) (*ports.CollectionInfo, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrLookup, err)
	}
	listID := u.Query().Get("list")

	result, err := c.loadTracks(ctx, "https://www.youtube.com/playlist?list="+listID)
	if err != nil {
		return nil, err
	}

	playlist, ok := result.Data.(lavalink.Playlist)
	if !ok {
		return nil, fmt.Errorf("%w: locator is not a collection", application.ErrLookup)
	}

	members := make([]ports.CollectionMember, 0, len(playlist.Tracks))
	for _, track := range playlist.Tracks {
		members = append(members, ports.CollectionMember{
			MemberID: track.Info.Identifier,
			Title:    track.Info.Title,
			Duration: trackDuration(track.Info),
			Locator:  trackLocator(track.Info),
		})
	}

	return &ports.CollectionInfo{
		Title:   playlist.Info.Name,
		Members: members,
	}, nil
}

// Search returns the locator of the best-ranking match for a free-text query.
func (c *LavalinkAdapter) Search(ctx context.Context, query string) (string, error) {
	result, err := c.loadTracks(ctx, c.searchPrefix+":"+query)
	if err != nil {
		return "", err
	}

	tracks, ok := result.Data.(lavalink.Search)
	if !ok || len(tracks) == 0 {
		return "", nil
	}
	return trackLocator(tracks[0].Info), nil
}

// loadSingle resolves a locator to exactly one track.
func (c *LavalinkAdapter) loadSingle(
	ctx context.Context,
	locator string,
) (*lavalink.Track, error) {
	result, err := c.loadTracks(ctx, locator)
	if err != nil {
		return nil, err
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return &data, nil
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return &data.Tracks[0], nil
		}
	case lavalink.Search:
		if len(data) > 0 {
			return &data[0], nil
		}
	case lavalink.Exception:
		return nil, fmt.Errorf("%w: %s", application.ErrLookup, data.Message)
	}

	return nil, fmt.Errorf("%w: no playable media at locator", application.ErrLookup)
}

func (c *LavalinkAdapter) loadTracks(
	ctx context.Context,
	identifier string,
) (*lavalink.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, fmt.Errorf("%w: no available Lavalink node", application.ErrLookup)
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrLookup, err)
	}
	return result, nil
}

// trackDuration converts Lavalink track timing to the queue's duration
// representation. Live streams have no known length.
func trackDuration(info lavalink.TrackInfo) domain.Duration {
	if info.IsStream {
		return domain.Unbounded()
	}
	return domain.Seconds(int64(info.Length) / 1000)
}

// trackLocator returns the canonical URL for a track.
func trackLocator(info lavalink.TrackInfo) string {
	if info.URI != nil && *info.URI != "" {
		return *info.URI
	}
	return "https://www.youtube.com/watch?v=" + info.Identifier
}

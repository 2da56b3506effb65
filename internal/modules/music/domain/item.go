package domain

import "time"

// ItemKind classifies how a queue item was resolved.
type ItemKind int

const (
	// KindDirectStream is an opaque URL played as-is; length is unknown.
	KindDirectStream ItemKind = iota
	// KindResolvedMedia is a single item resolved through the metadata source.
	KindResolvedMedia
	// KindPlaylistMember is one item of a resolved collection.
	KindPlaylistMember
)

// String returns a human-readable representation of the item kind.
func (k ItemKind) String() string {
	switch k {
	case KindResolvedMedia:
		return "media"
	case KindPlaylistMember:
		return "playlist_member"
	default:
		return "direct_stream"
	}
}

// Item is one playable unit in a guild's queue.
type Item struct {
	Title    string
	Duration Duration
	// Locator is the opaque string the transport uses to open a stream:
	// a URL or a platform video id.
	Locator string
	Kind    ItemKind
	// CollectionTitle groups contiguous playlist members in the rendered
	// queue. Set only when Kind is KindPlaylistMember.
	CollectionTitle string
	// StartOffset is how far into the item playback begins. It is not
	// validated against Duration; the renderer clamps instead.
	StartOffset time.Duration
}

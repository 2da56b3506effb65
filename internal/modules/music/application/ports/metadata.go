package ports

import (
	"context"

	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

// MediaInfo describes a single resolvable media item.
type MediaInfo struct {
	Title    string
	Duration domain.Duration
}

// CollectionMember is one entry of a collection listing.
type CollectionMember struct {
	MemberID string
	Title    string
	Duration domain.Duration
	Locator  string
}

// CollectionInfo is a fully materialized collection listing, in order.
type CollectionInfo struct {
	Title   string
	Members []CollectionMember
}

// MetadataSource resolves user input into playable media metadata.
// Lookup failures wrap application.ErrLookup so the resolver can convert
// them to user-facing replies.
type MetadataSource interface {
	// IsMediaReference reports whether input is recognized as a direct
	// single-media reference.
	IsMediaReference(input string) bool

	// IsCollectionReference reports whether input carries a collection
	// identifier.
	IsCollectionReference(input string) bool

	// MediaInfo fetches title and duration for a single media locator.
	MediaInfo(ctx context.Context, locator string) (*MediaInfo, error)

	// CollectionInfo fetches the full listing for a collection locator.
	CollectionInfo(ctx context.Context, locator string) (*CollectionInfo, error)

	// Search returns the locator of the best-ranking match for a free-text
	// query, or "" when nothing was found.
	Search(ctx context.Context, query string) (string, error)
}

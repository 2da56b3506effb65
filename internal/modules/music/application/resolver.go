package application

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

// maxStartTimestamp is the sanity ceiling for URL-embedded start timestamps.
// Anything above the longest plausible single item is treated as 0.
const maxStartTimestamp = 24 * time.Hour

// EnqueueFunc receives resolved items one by one. The player supplies it and
// applies the queue append policy (notification, immediate start) under its
// own lock, re-checking queue state at append time rather than trusting
// anything captured before the metadata lookups.
type EnqueueFunc func(item domain.Item)

// ResolveResult summarizes one resolution for the caller's reply.
type ResolveResult struct {
	// CollectionTitle is set when a collection was resolved; the caller
	// sends one aggregate notification instead of per-member ones.
	CollectionTitle string
	// CollectionCount is how many members were enqueued.
	CollectionCount int
}

// Resolver normalizes raw play input into queue items.
type Resolver struct {
	source             ports.MetadataSource
	collectionsEnabled bool
}

// NewResolver creates a new Resolver.
func NewResolver(source ports.MetadataSource, collectionsEnabled bool) *Resolver {
	return &Resolver{
		source:             source,
		collectionsEnabled: collectionsEnabled,
	}
}

// Resolve determines what rawInput refers to and emits zero or more items
// through enqueue. Free-text input is searched first and the best match is
// resolved as if the user had pasted its locator.
func (r *Resolver) Resolve(
	ctx context.Context,
	rawInput string,
	enqueue EnqueueFunc,
) (*ResolveResult, error) {
	rawInput = strings.TrimSpace(rawInput)
	if rawInput == "" {
		return nil, ErrEmptyQuery
	}

	if isLocator(rawInput) {
		return r.resolveLocator(ctx, rawInput, enqueue)
	}

	match, err := r.source.Search(ctx, rawInput)
	if err != nil {
		return nil, err
	}
	if match == "" {
		return nil, ErrNoResults
	}
	return r.resolveLocator(ctx, match, enqueue)
}

func (r *Resolver) resolveLocator(
	ctx context.Context,
	locator string,
	enqueue EnqueueFunc,
) (*ResolveResult, error) {
	isCollection := r.collectionsEnabled && r.source.IsCollectionReference(locator)

	switch {
	case r.source.IsMediaReference(locator) && !isCollection:
		return r.resolveMedia(ctx, locator, enqueue)

	case isCollection:
		return r.resolveCollection(ctx, locator, enqueue)

	default:
		// Opaque but URI-shaped: hand it to the transport as-is.
		enqueue(domain.Item{
			Title:    locator,
			Duration: domain.Unbounded(),
			Locator:  locator,
			Kind:     domain.KindDirectStream,
		})
		return &ResolveResult{}, nil
	}
}

func (r *Resolver) resolveMedia(
	ctx context.Context,
	locator string,
	enqueue EnqueueFunc,
) (*ResolveResult, error) {
	info, err := r.source.MediaInfo(ctx, locator)
	if err != nil {
		return nil, err
	}

	enqueue(domain.Item{
		Title:       info.Title,
		Duration:    info.Duration,
		Locator:     locator,
		Kind:        domain.KindResolvedMedia,
		StartOffset: startTimestamp(locator),
	})
	return &ResolveResult{}, nil
}

func (r *Resolver) resolveCollection(
	ctx context.Context,
	locator string,
	enqueue EnqueueFunc,
) (*ResolveResult, error) {
	info, err := r.source.CollectionInfo(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(info.Members) == 0 {
		return nil, ErrNoResults
	}

	start := collectionStartIndex(locator, info.Members)
	offset := startTimestamp(locator)

	for i := start; i < len(info.Members); i++ {
		member := info.Members[i]
		item := domain.Item{
			Title:           member.Title,
			Duration:        member.Duration,
			Locator:         member.Locator,
			Kind:            domain.KindPlaylistMember,
			CollectionTitle: info.Title,
		}
		// Only the entry the URL pointed at starts mid-item.
		if i == start {
			item.StartOffset = offset
		}
		enqueue(item)
	}

	return &ResolveResult{
		CollectionTitle: info.Title,
		CollectionCount: len(info.Members) - start,
	}, nil
}

// isLocator reports whether the input is URI-shaped: an absolute URL with a
// host, regardless of scheme.
func isLocator(input string) bool {
	u, err := url.Parse(input)
	return err == nil && u.IsAbs() && u.Host != ""
}

// startTimestamp extracts the t= query parameter as whole seconds.
// Non-numeric or implausibly large values yield 0.
func startTimestamp(locator string) time.Duration {
	u, err := url.Parse(locator)
	if err != nil {
		return 0
	}

	raw := u.Query().Get("t")
	if raw == "" {
		return 0
	}

	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds < 0 {
		return 0
	}

	offset := time.Duration(seconds) * time.Second
	if offset > maxStartTimestamp {
		return 0
	}
	return offset
}

// collectionStartIndex computes which member playback starts from.
// An explicit index parameter wins; otherwise the member id named by the URL
// is located in the listing; a collection URL carrying neither plays from
// the start.
func collectionStartIndex(locator string, members []ports.CollectionMember) int {
	u, err := url.Parse(locator)
	if err != nil {
		return 0
	}
	query := u.Query()

	if raw := query.Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err == nil && index >= 0 && index < len(members) {
			return index
		}
	}

	if memberID := query.Get("v"); memberID != "" {
		for i, member := range members {
			if member.MemberID == memberID {
				return i
			}
		}
	}

	return 0
}

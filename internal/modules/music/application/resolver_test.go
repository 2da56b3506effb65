package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

func collect(items *[]domain.Item) EnqueueFunc {
	return func(item domain.Item) {
		*items = append(*items, item)
	}
}

func testCollection(n int) ports.CollectionInfo {
	info := ports.CollectionInfo{Title: "Mixtape"}
	for i := 0; i < n; i++ {
		name := string(rune('a' + i))
		info.Members = append(info.Members, ports.CollectionMember{
			MemberID: "member-" + name,
			Title:    "Track " + name,
			Duration: domain.Seconds(60),
			Locator:  "https://media.example/" + name,
		})
	}
	return info
}

func TestResolver_EmptyInput(t *testing.T) {
	r := NewResolver(&mockMetadataSource{}, true)

	var items []domain.Item
	_, err := r.Resolve(context.Background(), "   ", collect(&items))

	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestResolver_FreeTextSearch(t *testing.T) {
	source := &mockMetadataSource{
		media: map[string]ports.MediaInfo{
			"https://media.example/hit": {Title: "The Hit", Duration: domain.Seconds(200)},
		},
		search: map[string]string{
			"some song": "https://media.example/hit",
		},
	}
	r := NewResolver(source, true)

	var items []domain.Item
	_, err := r.Resolve(context.Background(), "some song", collect(&items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Title != "The Hit" || item.Kind != domain.KindResolvedMedia {
		t.Errorf("unexpected item %+v", item)
	}
	if item.Duration != domain.Seconds(200) {
		t.Errorf("expected duration 200s, got %v", item.Duration)
	}
}

func TestResolver_FreeTextNoResults(t *testing.T) {
	r := NewResolver(&mockMetadataSource{search: map[string]string{}}, true)

	var items []domain.Item
	_, err := r.Resolve(context.Background(), "nothing here", collect(&items))

	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestResolver_MediaStartTimestamp(t *testing.T) {
	source := &mockMetadataSource{
		media: map[string]ports.MediaInfo{
			"https://media.example/a": {Title: "A", Duration: domain.Seconds(600)},
		},
	}
	r := NewResolver(source, true)

	tests := []struct {
		name    string
		locator string
		want    time.Duration
	}{
		{"no parameter", "https://media.example/a", 0},
		{"valid", "https://media.example/a?t=90", 90 * time.Second},
		{"negative", "https://media.example/a?t=-5", 0},
		{"non-numeric", "https://media.example/a?t=1m30s", 0},
		{"implausibly large", "https://media.example/a?t=999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []domain.Item
			if _, err := r.Resolve(context.Background(), tt.locator, collect(&items)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("expected 1 item, got %d", len(items))
			}
			if items[0].StartOffset != tt.want {
				t.Errorf("start offset = %v, want %v", items[0].StartOffset, tt.want)
			}
		})
	}
}

func TestResolver_CollectionFromIndex(t *testing.T) {
	source := &mockMetadataSource{
		collections: map[string]ports.CollectionInfo{
			"PLabc": testCollection(10),
		},
	}
	r := NewResolver(source, true)

	var items []domain.Item
	result, err := r.Resolve(
		context.Background(),
		"https://media.example/watch?list=PLabc&index=3&t=42",
		collect(&items),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 7 {
		t.Fatalf("expected members 3..9 enqueued, got %d items", len(items))
	}
	if items[0].Title != "Track d" {
		t.Errorf("expected first member %q, got %q", "Track d", items[0].Title)
	}
	if items[0].StartOffset != 42*time.Second {
		t.Errorf("expected start offset only on the entry member, got %v", items[0].StartOffset)
	}
	for i, item := range items[1:] {
		if item.StartOffset != 0 {
			t.Errorf("member %d has unexpected offset %v", i+1, item.StartOffset)
		}
	}
	for _, item := range items {
		if item.Kind != domain.KindPlaylistMember || item.CollectionTitle != "Mixtape" {
			t.Errorf("unexpected member %+v", item)
		}
	}
	if result.CollectionTitle != "Mixtape" || result.CollectionCount != 7 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestResolver_CollectionFromMemberID(t *testing.T) {
	source := &mockMetadataSource{
		collections: map[string]ports.CollectionInfo{
			"PLabc": testCollection(5),
		},
	}
	r := NewResolver(source, true)

	var items []domain.Item
	_, err := r.Resolve(
		context.Background(),
		"https://media.example/watch?v=member-c&list=PLabc",
		collect(&items),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("expected members c..e, got %d items", len(items))
	}
	if items[0].Title != "Track c" {
		t.Errorf("expected first member %q, got %q", "Track c", items[0].Title)
	}
}

func TestResolver_CollectionBadIndexFallsBack(t *testing.T) {
	source := &mockMetadataSource{
		collections: map[string]ports.CollectionInfo{
			"PLabc": testCollection(3),
		},
	}
	r := NewResolver(source, true)

	var items []domain.Item
	_, err := r.Resolve(
		context.Background(),
		"https://media.example/watch?list=PLabc&index=99",
		collect(&items),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 3 {
		t.Errorf("expected full collection on out-of-range index, got %d items", len(items))
	}
}

func TestResolver_CollectionsDisabled(t *testing.T) {
	source := &mockMetadataSource{
		media: map[string]ports.MediaInfo{
			"https://media.example/a": {Title: "A", Duration: domain.Seconds(60)},
		},
		collections: map[string]ports.CollectionInfo{
			"PLabc": testCollection(5),
		},
	}
	r := NewResolver(source, false)

	var items []domain.Item
	result, err := r.Resolve(
		context.Background(),
		"https://media.example/a?list=PLabc",
		collect(&items),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 1 || items[0].Kind != domain.KindResolvedMedia {
		t.Fatalf("expected single media item, got %+v", items)
	}
	if result.CollectionTitle != "" {
		t.Errorf("expected no collection in result, got %+v", result)
	}
}

func TestResolver_EmptyCollection(t *testing.T) {
	source := &mockMetadataSource{
		collections: map[string]ports.CollectionInfo{
			"PLempty": {Title: "Empty"},
		},
	}
	r := NewResolver(source, true)

	var items []domain.Item
	_, err := r.Resolve(
		context.Background(),
		"https://media.example/watch?list=PLempty",
		collect(&items),
	)

	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestResolver_OpaqueURLBecomesDirectStream(t *testing.T) {
	r := NewResolver(&mockMetadataSource{}, true)

	var items []domain.Item
	_, err := r.Resolve(context.Background(), "https://radio.example/stream", collect(&items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Kind != domain.KindDirectStream {
		t.Errorf("expected direct stream, got %v", item.Kind)
	}
	if !item.Duration.IsUnbounded() {
		t.Errorf("expected unbounded duration, got %v", item.Duration)
	}
	if item.Title != "https://radio.example/stream" {
		t.Errorf("expected locator as title, got %q", item.Title)
	}
}

func TestResolver_LookupErrorPropagates(t *testing.T) {
	source := &mockMetadataSource{
		media: map[string]ports.MediaInfo{
			"https://media.example/a": {Title: "A", Duration: domain.Seconds(60)},
		},
		mediaErr: ErrLookup,
	}
	r := NewResolver(source, true)

	var items []domain.Item
	_, err := r.Resolve(context.Background(), "https://media.example/a", collect(&items))

	if !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected nothing enqueued, got %d items", len(items))
	}
}

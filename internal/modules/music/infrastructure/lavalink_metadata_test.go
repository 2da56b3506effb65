package infrastructure

import "testing"

func TestIsMediaReference(t *testing.T) {
	adapter := &LavalinkAdapter{}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"bare host", "https://youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"music host", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", true},
		{"shorts path", "https://www.youtube.com/shorts/dQw4w9WgXcQ", true},
		{"embed path", "https://www.youtube.com/embed/dQw4w9WgXcQ", true},
		{"live path", "https://www.youtube.com/live/dQw4w9WgXcQ", true},
		{"watch with timestamp", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=90", true},
		{"id too short", "https://www.youtube.com/watch?v=short", false},
		{"missing id", "https://www.youtube.com/watch", false},
		{"wrong host", "https://vimeo.com/watch?v=dQw4w9WgXcQ", false},
		{"bare domain", "https://www.youtube.com/", false},
		{"free text", "never gonna give you up", false},
		{"opaque stream", "https://radio.example/stream.m3u8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.IsMediaReference(tt.input); got != tt.want {
				t.Errorf("IsMediaReference(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCollectionReference(t *testing.T) {
	adapter := &LavalinkAdapter{}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"playlist url", "https://www.youtube.com/playlist?list=PLabcdefghij12345", true},
		{"watch with list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabcdefghij12345", true},
		{"short url with list", "https://youtu.be/dQw4w9WgXcQ?list=PLabcdefghij12345", true},
		{"uploads list", "https://www.youtube.com/playlist?list=UUabcdefghij12345", true},
		{"autogenerated mix", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=RDdQw4w9WgXcQ", false},
		{"no list parameter", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"list too short", "https://www.youtube.com/playlist?list=PLshort", false},
		{"wrong host", "https://example.com/playlist?list=PLabcdefghij12345", false},
		{"free text", "my favourite playlist", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.IsCollectionReference(tt.input); got != tt.want {
				t.Errorf("IsCollectionReference(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

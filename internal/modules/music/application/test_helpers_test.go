package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

// stripQuery keys mock lookups by locator without its query parameters, so
// t= and index= variants resolve to the same entry.
func stripQuery(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return locator
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

type mockMetadataSource struct {
	media       map[string]ports.MediaInfo      // locator sans query
	collections map[string]ports.CollectionInfo // list parameter
	search      map[string]string               // query to locator
	mediaErr    error
	searchErr   error
}

func (m *mockMetadataSource) IsMediaReference(input string) bool {
	_, ok := m.media[stripQuery(input)]
	return ok
}

func (m *mockMetadataSource) IsCollectionReference(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	_, ok := m.collections[u.Query().Get("list")]
	return ok
}

func (m *mockMetadataSource) MediaInfo(
	_ context.Context,
	locator string,
) (*ports.MediaInfo, error) {
	if m.mediaErr != nil {
		return nil, m.mediaErr
	}
	info, ok := m.media[stripQuery(locator)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown locator", ErrLookup)
	}
	return &info, nil
}

func (m *mockMetadataSource) CollectionInfo(
	_ context.Context,
	locator string,
) (*ports.CollectionInfo, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	info, ok := m.collections[u.Query().Get("list")]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection", ErrLookup)
	}
	return &info, nil
}

func (m *mockMetadataSource) Search(_ context.Context, query string) (string, error) {
	if m.searchErr != nil {
		return "", m.searchErr
	}
	return m.search[query], nil
}

type mockVoiceState struct {
	channelID snowflake.ID
	err       error
}

func (m *mockVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (snowflake.ID, error) {
	return m.channelID, m.err
}

type playedStream struct {
	locator string
	offset  time.Duration
}

type mockStream struct {
	mu         sync.Mutex
	fn         func(ports.FinishCause)
	paused     bool
	forceEnded bool
	pauseErr   error
	resumeErr  error
}

func (s *mockStream) OnFinish(fn func(ports.FinishCause)) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *mockStream) Pause(_ context.Context) error {
	if s.pauseErr != nil {
		return s.pauseErr
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

func (s *mockStream) Resume(_ context.Context) error {
	if s.resumeErr != nil {
		return s.resumeErr
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

// ForceEnd fires the finish callback synchronously, like the real transport
// reporting a stopped track, just without the websocket round trip.
func (s *mockStream) ForceEnd(_ context.Context) error {
	s.mu.Lock()
	s.forceEnded = true
	s.mu.Unlock()
	s.fire(ports.FinishForced)
	return nil
}

func (s *mockStream) fire(cause ports.FinishCause) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(cause)
	}
}

type mockConnection struct {
	mu           sync.Mutex
	played       []playedStream
	streams      []*mockStream
	failLocators map[string]bool
	disconnects  int
}

func (c *mockConnection) PlayStream(
	_ context.Context,
	locator string,
	startOffset time.Duration,
) (ports.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failLocators[locator] {
		return nil, fmt.Errorf("cannot open %s", locator)
	}

	c.played = append(c.played, playedStream{locator: locator, offset: startOffset})
	stream := &mockStream{}
	c.streams = append(c.streams, stream)
	return stream, nil
}

func (c *mockConnection) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *mockConnection) lastStream() *mockStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.streams) == 0 {
		return nil
	}
	return c.streams[len(c.streams)-1]
}

func (c *mockConnection) playedLocators() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	locators := make([]string, len(c.played))
	for i, p := range c.played {
		locators[i] = p.locator
	}
	return locators
}

type mockTransport struct {
	mu      sync.Mutex
	conn    *mockConnection
	joinErr error
	joins   int
}

func (t *mockTransport) Join(
	_ context.Context,
	_, _ snowflake.ID,
) (ports.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joinErr != nil {
		return nil, t.joinErr
	}
	t.joins++
	return t.conn, nil
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *mockMessenger) Send(_ snowflake.ID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockMessenger) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type mockPresence struct {
	mu      sync.Mutex
	history []string
}

func (p *mockPresence) SetPresence(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, text)
	return nil
}

func (p *mockPresence) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return ""
	}
	return p.history[len(p.history)-1]
}

// fixture wires a Player against the mocks with one known media item per
// title passed in.
type fixture struct {
	player     *Player
	source     *mockMetadataSource
	transport  *mockTransport
	conn       *mockConnection
	messenger  *mockMessenger
	presence   *mockPresence
	voiceState *mockVoiceState
}

func mediaLocator(name string) string {
	return "https://media.example/" + name
}

func newFixture(idleTimeout time.Duration, titles map[string]int64) *fixture {
	source := &mockMetadataSource{
		media:       make(map[string]ports.MediaInfo),
		collections: make(map[string]ports.CollectionInfo),
		search:      make(map[string]string),
	}
	for name, seconds := range titles {
		source.media[mediaLocator(name)] = ports.MediaInfo{
			Title:    name,
			Duration: domain.Seconds(seconds),
		}
	}

	conn := &mockConnection{failLocators: make(map[string]bool)}
	transport := &mockTransport{conn: conn}
	messenger := &mockMessenger{}
	presence := &mockPresence{}
	voiceState := &mockVoiceState{channelID: snowflake.ID(100)}

	player := NewPlayer(
		NewResolver(source, true),
		transport,
		voiceState,
		messenger,
		presence,
		idleTimeout,
	)

	return &fixture{
		player:     player,
		source:     source,
		transport:  transport,
		conn:       conn,
		messenger:  messenger,
		presence:   presence,
		voiceState: voiceState,
	}
}

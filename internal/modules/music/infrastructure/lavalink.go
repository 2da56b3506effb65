package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
)

// voiceConnectionTimeout is the maximum time to wait for a voice connection
// to be established.
const voiceConnectionTimeout = 10 * time.Second

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready once both are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out
// of order.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// getData returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) getData() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID = b.channelID
	sessionID = b.sessionID
	token = b.token
	endpoint = b.endpoint

	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkAdapter wraps DisGoLink to implement the voice transport and
// metadata source ports.
type LavalinkAdapter struct {
	link         disgolink.Client
	session      *discordgo.Session
	botID        snowflake.ID
	searchPrefix string

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds buffered voice events per guild to handle
	// out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	// streams maps each guild to the stream handle its track end events
	// belong to.
	streamMu sync.Mutex
	streams  map[snowflake.ID]*lavalinkStream
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	// SearchPrefix selects the Lavalink search source for free-text
	// queries, e.g. "ytsearch".
	SearchPrefix string
}

// NewLavalinkAdapter creates a new LavalinkAdapter.
func NewLavalinkAdapter(
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		searchPrefix: config.SearchPrefix,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		streams:      make(map[snowflake.ID]*lavalinkStream),
	}

	link := disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)
	adapter.link = link

	node, err := link.AddNode(context.Background(), disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Link returns the underlying DisGoLink client.
func (c *LavalinkAdapter) Link() disgolink.Client {
	return c.link
}

// Join connects to a voice channel and returns a connection handle for the
// guild. It waits for both VoiceStateUpdate and VoiceServerUpdate events
// before returning.
func (c *LavalinkAdapter) Join(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.Connection, error) {
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return &lavalinkConnection{adapter: c, guildID: guildID}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return nil, fmt.Errorf("timeout waiting for voice connection")
	}
}

// lavalinkConnection is the per-guild connection handle handed to the player.
type lavalinkConnection struct {
	adapter *LavalinkAdapter
	guildID snowflake.ID
}

// PlayStream starts streaming the given locator on the guild's player.
func (conn *lavalinkConnection) PlayStream(
	ctx context.Context,
	locator string,
	startOffset time.Duration,
) (ports.Stream, error) {
	c := conn.adapter

	track, err := c.loadSingle(ctx, locator)
	if err != nil {
		return nil, err
	}

	stream := &lavalinkStream{adapter: c, guildID: conn.guildID}

	// Register before starting playback so a fast track end cannot slip
	// past the handle.
	c.streamMu.Lock()
	c.streams[conn.guildID] = stream
	c.streamMu.Unlock()

	opts := []lavalink.PlayerUpdateOpt{
		// WithEncodedTrack avoids the userData:null issue
		lavalink.WithEncodedTrack(track.Encoded),
	}
	if startOffset > 0 {
		opts = append(opts, lavalink.WithPosition(lavalink.Duration(startOffset.Milliseconds())))
	}

	player := c.link.Player(conn.guildID)
	if err := player.Update(ctx, opts...); err != nil {
		c.dropStream(conn.guildID, stream)
		return nil, fmt.Errorf("failed to play track: %w", err)
	}

	return stream, nil
}

// Disconnect destroys the guild's player and leaves the voice channel.
func (conn *lavalinkConnection) Disconnect(ctx context.Context) error {
	c := conn.adapter

	c.streamMu.Lock()
	delete(c.streams, conn.guildID)
	c.streamMu.Unlock()

	player := c.link.ExistingPlayer(conn.guildID)
	if player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", conn.guildID, "error", err)
		}
	}

	err := c.session.ChannelVoiceJoinManual(conn.guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// lavalinkStream is the handle for one started track. Track end events are
// routed to it by guild; a finish arriving before OnFinish is installed is
// buffered and delivered on installation.
type lavalinkStream struct {
	adapter *LavalinkAdapter
	guildID snowflake.ID

	mu      sync.Mutex
	fn      func(ports.FinishCause)
	pending *ports.FinishCause
}

// OnFinish installs the completion callback.
func (s *lavalinkStream) OnFinish(fn func(ports.FinishCause)) {
	s.mu.Lock()
	s.fn = fn
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		// Deliver off the caller's goroutine; the caller may hold the lock
		// the callback needs.
		go fn(*pending)
	}
}

// Pause suspends playback.
func (s *lavalinkStream) Pause(ctx context.Context) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// Resume continues playback.
func (s *lavalinkStream) Resume(ctx context.Context) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// ForceEnd stops the track. The finish callback fires with a forced cause
// once Lavalink reports the end.
func (s *lavalinkStream) ForceEnd(ctx context.Context) error {
	player := s.adapter.link.Player(s.guildID)
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// finish delivers the completion cause, or buffers it if the callback is
// not installed yet.
func (s *lavalinkStream) finish(cause ports.FinishCause) {
	s.mu.Lock()
	fn := s.fn
	if fn == nil {
		s.pending = &cause
	}
	s.mu.Unlock()

	if fn != nil {
		fn(cause)
	}
}

// takeStream removes and returns the guild's current stream handle.
func (c *LavalinkAdapter) takeStream(guildID snowflake.ID) *lavalinkStream {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()

	stream := c.streams[guildID]
	delete(c.streams, guildID)
	return stream
}

// dropStream removes the handle only if it is still the guild's current one.
func (c *LavalinkAdapter) dropStream(guildID snowflake.ID, stream *lavalinkStream) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()

	if c.streams[guildID] == stream {
		delete(c.streams, guildID)
	}
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)

	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(false)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	sessionID := event.SessionID

	// An empty channel ID means the bot is disconnecting
	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Handle disconnect immediately (no need to wait for VoiceServerUpdate)
	if channelID == nil {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, sessionID)
		c.clearVoiceBuffer(guildID)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)

	if buffer.setVoiceState(channelID, sessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(true)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (c *LavalinkAdapter) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink.
func (c *LavalinkAdapter) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.getData()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	// Forward to Lavalink in the correct order
	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	// A replaced track's end belongs to a superseded stream handle that has
	// already been forgotten.
	if event.Reason == lavalink.TrackEndReasonReplaced {
		return
	}

	stream := c.takeStream(player.GuildID())
	if stream == nil {
		return
	}
	stream.finish(causeFromEndReason(event.Reason))
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	// The matching TrackEndEvent with a loadFailed reason drives queue
	// advancement; this is diagnostics only.
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

func causeFromEndReason(reason lavalink.TrackEndReason) ports.FinishCause {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return ports.FinishNatural
	case lavalink.TrackEndReasonLoadFailed:
		return ports.FinishError
	default:
		// stopped, cleanup
		return ports.FinishForced
	}
}

// Ensure LavalinkAdapter implements the port interfaces.
var (
	_ ports.VoiceTransport = (*LavalinkAdapter)(nil)
	_ ports.MetadataSource = (*LavalinkAdapter)(nil)
)

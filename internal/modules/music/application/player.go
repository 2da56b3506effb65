package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/avsenik/tonbot/internal/modules/music/application/ports"
	"github.com/avsenik/tonbot/internal/modules/music/domain"
)

// DefaultIdleTimeout is how long an empty session keeps its voice
// connection before disconnecting.
const DefaultIdleTimeout = 5 * time.Minute

// session is the playback state of one guild. Everything in it is owned by
// that guild alone; the mutex serializes command handling and stream
// completion callbacks for the guild. Suspension points (metadata lookups,
// channel joins) run outside the lock and every mutation after one re-checks
// the state it found before.
type session struct {
	mu sync.Mutex

	guildID snowflake.ID
	state   domain.SessionState
	queue   domain.Queue

	// snapshot preserves the queue across a stop so resume can restore it.
	// Overwritten on each stop, cleared on consumption and on idle timeout.
	snapshot []domain.Item

	conn   ports.Connection
	stream ports.Stream

	// idleTimer is non-nil exactly while the idle teardown is armed.
	idleTimer *time.Timer

	replyChannelID snowflake.ID

	// Playback position bookkeeping for the head item.
	startOffset  time.Duration
	played       time.Duration
	playingSince time.Time // zero while paused or stopped
}

// playedTime returns how long the head item has actually played, excluding
// its start offset. Call with the session lock held.
func (s *session) playedTime() time.Duration {
	total := s.played
	if !s.playingSince.IsZero() {
		total += time.Since(s.playingSince)
	}
	return total
}

// elapsed returns the position within the head item. Call with the lock held.
func (s *session) elapsed() time.Duration {
	return s.startOffset + s.playedTime()
}

func (s *session) cancelIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// Player drives the per-guild playback sessions. It is the sole writer of
// queue head advancement: items leave a queue only through the finish path
// or a stop.
type Player struct {
	resolver    *Resolver
	transport   ports.VoiceTransport
	voiceState  ports.VoiceStateProvider
	messenger   ports.Messenger
	presence    ports.PresenceUpdater
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[snowflake.ID]*session
}

// NewPlayer creates a new Player.
func NewPlayer(
	resolver *Resolver,
	transport ports.VoiceTransport,
	voiceState ports.VoiceStateProvider,
	messenger ports.Messenger,
	presence ports.PresenceUpdater,
	idleTimeout time.Duration,
) *Player {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Player{
		resolver:    resolver,
		transport:   transport,
		voiceState:  voiceState,
		messenger:   messenger,
		presence:    presence,
		idleTimeout: idleTimeout,
		sessions:    make(map[snowflake.ID]*session),
	}
}

func (p *Player) sessionFor(guildID snowflake.ID) *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[guildID]
	if !ok {
		sess = &session{
			guildID: guildID,
			state:   domain.StateIdle,
			queue:   domain.NewQueue(),
		}
		p.sessions[guildID] = sess
	}
	return sess
}

func (p *Player) lookup(guildID snowflake.ID) *session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[guildID]
}

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID        snowflake.ID
	UserID         snowflake.ID
	ReplyChannelID snowflake.ID
	Query          string
}

// PlayOutput contains the result of the Play use case. At most one of
// StartedTitle, QueuedTitle and CollectionTitle is meaningful.
type PlayOutput struct {
	StartedTitle    string // playback began with this item
	QueuedTitle     string // a single item was appended behind others
	CollectionTitle string // a collection was appended
	CollectionCount int
}

// Play resolves the query and enqueues the result, starting or resuming
// playback as the session state requires.
func (p *Player) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	voiceChannelID, err := p.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up voice state: %w", err)
	}
	if voiceChannelID == 0 {
		return nil, ErrNotInVoice
	}

	sess := p.sessionFor(input.GuildID)

	sess.mu.Lock()
	sess.replyChannelID = input.ReplyChannelID
	sess.mu.Unlock()

	out := &PlayOutput{}

	result, err := p.resolver.Resolve(ctx, input.Query, func(item domain.Item) {
		sess.mu.Lock()
		defer sess.mu.Unlock()

		// Emptiness decides the notification; check it at append time, not
		// before the lookups, since a stop may have raced the resolution.
		wasEmpty := sess.queue.IsEmpty()
		sess.queue.Append(item)
		if !wasEmpty && item.Kind != domain.KindPlaylistMember {
			out.QueuedTitle = item.Title
		}
	})
	if err != nil {
		return nil, err
	}
	out.CollectionTitle = result.CollectionTitle
	out.CollectionCount = result.CollectionCount

	started, err := p.ensurePlaying(ctx, sess, voiceChannelID)
	if err != nil {
		return nil, err
	}
	out.StartedTitle = started

	return out, nil
}

// ensurePlaying makes sure the session is streaming if its queue has items.
// Returns the title of the item it started, or "" if playback was already
// running (or the queue emptied underneath us).
func (p *Player) ensurePlaying(
	ctx context.Context,
	sess *session,
	voiceChannelID snowflake.ID,
) (string, error) {
	sess.mu.Lock()

	if sess.queue.IsEmpty() {
		sess.mu.Unlock()
		return "", nil
	}

	switch sess.state {
	case domain.StatePlaying, domain.StatePaused, domain.StateConnecting:
		// Items were appended behind an active session.
		sess.mu.Unlock()
		return "", nil

	case domain.StateDraining:
		// Connection still held; cancel the teardown and continue streaming
		// without rejoining.
		sess.cancelIdleTimer()
		title, err := p.startHead(ctx, sess)
		sess.mu.Unlock()
		return title, err

	default: // Idle
		sess.state = domain.StateConnecting
		guildID := sess.guildID
		sess.mu.Unlock()

		conn, err := p.transport.Join(ctx, guildID, voiceChannelID)

		sess.mu.Lock()
		if err != nil {
			sess.state = domain.StateIdle
			sess.mu.Unlock()
			return "", fmt.Errorf("failed to join voice channel: %w", err)
		}
		// The join suspended; a stop may have reset the session meanwhile.
		if sess.state != domain.StateConnecting || sess.queue.IsEmpty() {
			sess.mu.Unlock()
			if derr := conn.Disconnect(ctx); derr != nil {
				slog.Warn("failed to release superseded connection",
					"guild", guildID, "error", derr)
			}
			return "", nil
		}
		sess.conn = conn
		title, err := p.startHead(ctx, sess)
		sess.mu.Unlock()
		return title, err
	}
}

// startHead starts streaming the queue head. Call with the session lock
// held and a live connection. Items that fail to open are reported, popped
// and skipped over.
func (p *Player) startHead(ctx context.Context, sess *session) (string, error) {
	for {
		head := sess.queue.Head()
		if head == nil {
			p.enterDraining(sess)
			return "", nil
		}

		if err := p.startStream(ctx, sess, *head); err != nil {
			slog.Warn("failed to start item",
				"guild", sess.guildID, "title", head.Title, "error", err)
			p.notify(sess, "Failed to play "+head.Title+", skipping!")
			sess.queue.PopHead()
			continue
		}
		return head.Title, nil
	}
}

// startStream opens the stream for one item and installs the finish
// callback. Call with the session lock held.
func (p *Player) startStream(ctx context.Context, sess *session, item domain.Item) error {
	stream, err := sess.conn.PlayStream(ctx, item.Locator, item.StartOffset)
	if err != nil {
		return err
	}

	sess.stream = stream
	sess.state = domain.StatePlaying
	sess.startOffset = item.StartOffset
	sess.played = 0
	sess.playingSince = time.Now()

	guildID := sess.guildID
	stream.OnFinish(func(cause ports.FinishCause) {
		p.handleStreamFinish(guildID, cause)
	})

	if err := p.presence.SetPresence(item.Title); err != nil {
		slog.Warn("failed to update presence", "guild", guildID, "error", err)
	}

	slog.Info("playing", "guild", guildID, "title", item.Title)
	return nil
}

// handleStreamFinish is the single completion path for natural stream end,
// skip and recoverable transport errors alike. It advances the queue and
// either continues with the next item or begins the idle teardown.
func (p *Player) handleStreamFinish(guildID snowflake.ID, cause ports.FinishCause) {
	sess := p.lookup(guildID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// A stop or idle timeout already tore the session down; the callback
	// from its force-ended stream carries nothing left to do.
	if sess.state != domain.StatePlaying && sess.state != domain.StatePaused {
		return
	}

	slog.Debug("stream finished", "guild", guildID, "cause", cause)

	sess.stream = nil
	sess.queue.PopHead()

	if _, err := p.startHead(context.Background(), sess); err != nil {
		slog.Error("failed to advance queue", "guild", guildID, "error", err)
	}
}

// enterDraining arms the idle teardown for an emptied queue. Call with the
// session lock held.
func (p *Player) enterDraining(sess *session) {
	sess.state = domain.StateDraining
	sess.playingSince = time.Time{}
	sess.played = 0
	sess.startOffset = 0

	if err := p.presence.SetPresence(""); err != nil {
		slog.Warn("failed to clear presence", "guild", sess.guildID, "error", err)
	}

	guildID := sess.guildID
	sess.cancelIdleTimer()
	sess.idleTimer = time.AfterFunc(p.idleTimeout, func() {
		p.handleIdleTimeout(guildID)
	})
}

// handleIdleTimeout releases the voice connection after the queue has been
// empty for the full idle period.
func (p *Player) handleIdleTimeout(guildID snowflake.ID) {
	sess := p.lookup(guildID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	if sess.state != domain.StateDraining {
		// Superseded by a play request that canceled the timer as it fired.
		sess.mu.Unlock()
		return
	}

	sess.idleTimer = nil
	sess.snapshot = nil
	sess.state = domain.StateIdle
	conn := sess.conn
	sess.conn = nil
	sess.stream = nil
	sess.mu.Unlock()

	slog.Info("idle timeout, disconnecting", "guild", guildID)

	if conn != nil {
		if err := conn.Disconnect(context.Background()); err != nil {
			slog.Warn("failed to disconnect", "guild", guildID, "error", err)
		}
	}
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID snowflake.ID
}

// Stop truncates the queue, snapshots it for a later resume and releases
// the stream and voice connection.
func (p *Player) Stop(ctx context.Context, input StopInput) error {
	sess := p.lookup(input.GuildID)
	if sess == nil {
		return ErrNothingToStop
	}

	sess.mu.Lock()
	if sess.queue.IsEmpty() && sess.conn == nil {
		sess.mu.Unlock()
		return ErrNothingToStop
	}

	snapshot := sess.queue.Snapshot()
	if len(snapshot) > 0 {
		// Let resume pick up where this stop cut the head item off.
		snapshot[0].StartOffset += sess.playedTime()
		sess.snapshot = snapshot
	} else {
		sess.snapshot = nil
	}

	sess.queue.Clear()
	sess.cancelIdleTimer()

	stream := sess.stream
	conn := sess.conn
	sess.stream = nil
	sess.conn = nil
	sess.state = domain.StateIdle
	sess.playingSince = time.Time{}
	sess.played = 0
	sess.startOffset = 0
	sess.mu.Unlock()

	if err := p.presence.SetPresence(""); err != nil {
		slog.Warn("failed to clear presence", "guild", input.GuildID, "error", err)
	}

	if stream != nil {
		if err := stream.ForceEnd(ctx); err != nil {
			slog.Warn("failed to end stream", "guild", input.GuildID, "error", err)
		}
	}
	if conn != nil {
		if err := conn.Disconnect(ctx); err != nil {
			slog.Warn("failed to disconnect", "guild", input.GuildID, "error", err)
		}
	}

	return nil
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID snowflake.ID
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTitle string
}

// Skip force-ends the current stream. Queue advancement happens on the
// finish path, the same as a natural end.
func (p *Player) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	sess := p.lookup(input.GuildID)
	if sess == nil {
		return nil, ErrNothingToSkip
	}

	sess.mu.Lock()
	if sess.stream == nil ||
		(sess.state != domain.StatePlaying && sess.state != domain.StatePaused) {
		sess.mu.Unlock()
		return nil, ErrNothingToSkip
	}

	head := sess.queue.Head()
	if head == nil {
		sess.mu.Unlock()
		return nil, ErrNothingToSkip
	}
	title := head.Title
	stream := sess.stream
	sess.mu.Unlock()

	if err := stream.ForceEnd(ctx); err != nil {
		return nil, fmt.Errorf("failed to end stream: %w", err)
	}

	return &SkipOutput{SkippedTitle: title}, nil
}

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID snowflake.ID
}

// Pause suspends the current stream.
func (p *Player) Pause(ctx context.Context, input PauseInput) error {
	sess := p.lookup(input.GuildID)
	if sess == nil {
		return ErrNothingPlaying
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stream == nil || sess.state == domain.StateDraining {
		return ErrNothingPlaying
	}
	if sess.state == domain.StatePaused {
		return ErrAlreadyPaused
	}

	if err := sess.stream.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause stream: %w", err)
	}

	sess.played += time.Since(sess.playingSince)
	sess.playingSince = time.Time{}
	sess.state = domain.StatePaused

	return nil
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID        snowflake.ID
	UserID         snowflake.ID
	ReplyChannelID snowflake.ID
}

// ResumeOutput contains the result of the Resume use case.
type ResumeOutput struct {
	ResumedTitle string
	// Restored is true when playback was reconstructed from a stop
	// snapshot rather than unpaused.
	Restored bool
}

// Resume continues a paused stream, or restores the queue saved by the last
// stop and starts playback from where it was cut off.
func (p *Player) Resume(ctx context.Context, input ResumeInput) (*ResumeOutput, error) {
	sess := p.lookup(input.GuildID)
	if sess == nil {
		return nil, ErrNotPaused
	}

	sess.mu.Lock()

	if sess.state == domain.StatePaused && sess.stream != nil {
		if err := sess.stream.Resume(ctx); err != nil {
			sess.mu.Unlock()
			return nil, fmt.Errorf("failed to resume stream: %w", err)
		}
		sess.state = domain.StatePlaying
		sess.playingSince = time.Now()
		title := ""
		if head := sess.queue.Head(); head != nil {
			title = head.Title
		}
		sess.mu.Unlock()
		return &ResumeOutput{ResumedTitle: title}, nil
	}

	if sess.state != domain.StateIdle || sess.snapshot == nil {
		sess.mu.Unlock()
		return nil, ErrNotPaused
	}

	// Restoring needs a channel to join, same as a fresh play.
	voiceChannelID, err := p.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("failed to look up voice state: %w", err)
	}
	if voiceChannelID == 0 {
		sess.mu.Unlock()
		return nil, ErrNotInVoice
	}

	sess.queue.Restore(sess.snapshot)
	sess.snapshot = nil
	sess.replyChannelID = input.ReplyChannelID
	sess.mu.Unlock()

	title, err := p.ensurePlaying(ctx, sess, voiceChannelID)
	if err != nil {
		return nil, err
	}

	return &ResumeOutput{ResumedTitle: title, Restored: true}, nil
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID snowflake.ID
}

// QueueList renders the current queue for display.
func (p *Player) QueueList(input QueueListInput) string {
	sess := p.lookup(input.GuildID)
	if sess == nil {
		return domain.RenderQueue(nil, domain.Seconds(0))
	}

	sess.mu.Lock()
	items := sess.queue.Items()
	elapsed := domain.Seconds(int64(sess.elapsed().Seconds()))
	sess.mu.Unlock()

	return domain.RenderQueue(items, elapsed)
}

// notify sends a message to the session's reply channel. Call with the
// session lock held.
func (p *Player) notify(sess *session, text string) {
	if sess.replyChannelID == 0 {
		return
	}
	if err := p.messenger.Send(sess.replyChannelID, text); err != nil {
		slog.Warn("failed to send notification",
			"guild", sess.guildID, "channel", sess.replyChannelID, "error", err)
	}
}

// Shutdown releases every session's stream and connection.
func (p *Player) Shutdown(ctx context.Context) {
	p.mu.Lock()
	sessions := make([]*session, 0, len(p.sessions))
	for _, sess := range p.sessions {
		sessions = append(sessions, sess)
	}
	p.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		sess.cancelIdleTimer()
		stream := sess.stream
		conn := sess.conn
		sess.stream = nil
		sess.conn = nil
		sess.queue.Clear()
		sess.state = domain.StateIdle
		sess.mu.Unlock()

		if stream != nil {
			if err := stream.ForceEnd(ctx); err != nil {
				slog.Warn("failed to end stream on shutdown",
					"guild", sess.guildID, "error", err)
			}
		}
		if conn != nil {
			if err := conn.Disconnect(ctx); err != nil {
				slog.Warn("failed to disconnect on shutdown",
					"guild", sess.guildID, "error", err)
			}
		}
	}
}

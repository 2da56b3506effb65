package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// FinishCause is why an active stream stopped.
type FinishCause int

const (
	// FinishNatural means the stream played to its end.
	FinishNatural FinishCause = iota
	// FinishForced means the stream was ended deliberately (skip).
	FinishForced
	// FinishError means the stream failed in a way the session should
	// recover from by advancing the queue, e.g. an access-restricted item.
	FinishError
)

// String returns a human-readable representation of the finish cause.
func (c FinishCause) String() string {
	switch c {
	case FinishForced:
		return "forced"
	case FinishError:
		return "error"
	default:
		return "natural"
	}
}

// Stream is a handle to one active media stream.
type Stream interface {
	// OnFinish registers the completion callback. It is invoked exactly once
	// per stream, for natural completion, forced end and recoverable errors
	// alike. Unrecognized transport errors are logged by the transport and
	// do not trigger the callback.
	OnFinish(fn func(cause FinishCause))

	// Pause suspends the stream; it can be resumed.
	Pause(ctx context.Context) error

	// Resume continues a paused stream.
	Resume(ctx context.Context) error

	// ForceEnd terminates the stream early, triggering the finish callback
	// with FinishForced.
	ForceEnd(ctx context.Context) error
}

// Connection is a live voice channel connection for one guild.
type Connection interface {
	// PlayStream opens a stream for the given locator, beginning playback
	// startOffset into the item.
	PlayStream(ctx context.Context, locator string, startOffset time.Duration) (Stream, error)

	// Disconnect releases the voice connection.
	Disconnect(ctx context.Context) error
}

// VoiceTransport joins voice channels.
type VoiceTransport interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) (Connection, error)
}

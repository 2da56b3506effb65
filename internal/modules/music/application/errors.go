package application

import "errors"

// User-facing errors for the music module. Handlers reply with the error
// text directly, so these read as messages rather than diagnostics.
var (
	// ErrNotInVoice is returned when the caller is not in a voice channel.
	ErrNotInVoice = errors.New("you must be in a voice channel")

	// ErrEmptyQuery is returned when play is invoked without input.
	ErrEmptyQuery = errors.New("give me a link or a search term")

	// ErrNoResults is returned when a search yields no match.
	ErrNoResults = errors.New("no result found")

	// ErrNothingToStop is returned when stop finds no session or queue.
	ErrNothingToStop = errors.New("there is nothing to stop")

	// ErrNothingToSkip is returned when skip finds no active stream.
	ErrNothingToSkip = errors.New("there is nothing to skip")

	// ErrNothingPlaying is returned when pause finds no active stream.
	ErrNothingPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when pausing an already paused stream.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when resume finds neither a paused stream
	// nor a stopped queue to restore.
	ErrNotPaused = errors.New("playback is not paused and there is nothing to restore")

	// ErrLookup wraps metadata source failures, including access-restricted
	// items. It never propagates past the resolver as anything but a reply.
	ErrLookup = errors.New("failed to fetch media info")
)

package domain

import (
	"strconv"
	"strings"
)

// MaxRenderLength is the platform ceiling for one message.
const MaxRenderLength = 2000

const (
	emptyQueueMessage = "Queue is empty"
	overflowSuffix    = "...\n**Queue too long to display!**"
	barGlyph          = "⏐⏐"
)

// RenderQueue formats the queue into a bounded-length listing. elapsed is
// how far into the head item playback currently is (clock time since the
// item started plus its start offset). Wait times for queued items are
// cumulative; an unbounded item makes every later wait unbounded as well.
func RenderQueue(items []Item, elapsed Duration) string {
	if len(items) == 0 {
		return emptyQueueMessage
	}

	var b strings.Builder
	head := items[0]

	total := head.Duration
	if !total.IsUnbounded() && !elapsed.IsUnbounded() && elapsed.Secs() > total.Secs() {
		// Offset past the end of the item is tolerated, clamp for display.
		elapsed = total
	}

	b.WriteString("**Currently playing:** ")
	b.WriteString(head.Title)
	b.WriteString(" **" + barGlyph + " ")
	b.WriteString(elapsed.String())
	b.WriteString(" / ")
	b.WriteString(total.String())
	b.WriteString(" " + barGlyph + "**\n\n")

	// Running wait until each queued item starts, seeded with what is left
	// of the head item.
	wait := total.Sub(elapsed)

	lastCollection := ""
	for i := 1; i < len(items); i++ {
		item := items[i]

		prefix := ""
		if item.Kind == KindPlaylistMember {
			if item.CollectionTitle != lastCollection {
				lastCollection = item.CollectionTitle
				b.WriteString("**" + item.CollectionTitle + "**\n")
			}
			prefix = "> "
		} else {
			lastCollection = ""
		}

		b.WriteString(prefix)
		b.WriteString("**" + strconv.Itoa(i) + ". " + barGlyph + " ")
		b.WriteString(wait.String())
		b.WriteString(" " + barGlyph + "** ")
		b.WriteString(item.Title)
		b.WriteString("\n")

		// The item's own start offset is skipped at playback, so it does
		// not delay anything queued behind it.
		wait = wait.Add(item.Duration.Sub(Seconds(int64(item.StartOffset.Seconds()))))
	}

	return truncate(b.String())
}

// truncate trims the message to the platform ceiling, dropping dangling
// newlines before the overflow suffix. The cut can land inside the blank
// line after the head block, so there may be more than one. The ceiling
// counts characters, not bytes, matching how the platform measures message
// length.
func truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= MaxRenderLength {
		return message
	}

	suffixLen := len([]rune(overflowSuffix))
	message = string(runes[:MaxRenderLength-suffixLen-1])
	message = strings.TrimRight(message, "\n")
	return message + overflowSuffix
}

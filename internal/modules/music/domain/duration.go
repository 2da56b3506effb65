package domain

import (
	"strconv"
	"strings"
)

// UnboundedGlyph is the display form of an unbounded duration
// (live streams and opaque direct streams with unknown length).
const UnboundedGlyph = "ထ"

// Duration is a track length in whole seconds, or unbounded.
// Arithmetic treats unbounded as absorbing: once a queue contains an
// unbounded item, every total computed past it is unbounded too.
type Duration struct {
	seconds   int64
	unbounded bool
}

// Seconds returns a finite duration of n seconds. Negative values clamp to 0.
func Seconds(n int64) Duration {
	if n < 0 {
		n = 0
	}
	return Duration{seconds: n}
}

// Unbounded returns the unbounded duration.
func Unbounded() Duration {
	return Duration{unbounded: true}
}

// IsUnbounded reports whether d is unbounded.
func (d Duration) IsUnbounded() bool {
	return d.unbounded
}

// Secs returns the number of whole seconds. Only meaningful when finite.
func (d Duration) Secs() int64 {
	return d.seconds
}

// Add returns d + other; unbounded absorbs.
func (d Duration) Add(other Duration) Duration {
	if d.unbounded || other.unbounded {
		return Unbounded()
	}
	return Seconds(d.seconds + other.seconds)
}

// Sub returns d - other clamped at 0; unbounded absorbs.
func (d Duration) Sub(other Duration) Duration {
	if d.unbounded || other.unbounded {
		return Unbounded()
	}
	return Seconds(d.seconds - other.seconds)
}

// String formats the duration as H:MM:SS, omitting the hours field when it
// is zero. Every field after the leading one is zero-padded to two digits,
// so 180s renders as "3:00" and 3723s as "1:02:03".
func (d Duration) String() string {
	if d.unbounded {
		return UnboundedGlyph
	}

	hours := d.seconds / 3600
	minutes := (d.seconds % 3600) / 60
	seconds := d.seconds % 60

	if hours > 0 {
		return strconv.FormatInt(hours, 10) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.FormatInt(minutes, 10) + ":" + pad(seconds)
}

func pad(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ParseDuration is the inverse of String. Fields are positional from the
// right: the last is seconds, the one before it minutes, and so on, each
// multiplied by 60^position. The unbounded glyph parses to Unbounded.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == UnboundedGlyph {
		return Unbounded(), nil
	}

	fields := strings.Split(s, ":")
	var total int64
	for _, field := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return Duration{}, err
		}
		total = total*60 + n
	}
	return Seconds(total), nil
}

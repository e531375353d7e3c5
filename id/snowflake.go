// Package id provides the Snowflake identifier type and the typed,
// nominal identifier wrappers used throughout the client so that, say, a
// ChannelID can never be silently passed where a UserID is expected.
package id

import (
	"bytes"
	"strconv"
	"time"
)

// Epoch is the first second of 2015, the reference point every Snowflake
// timestamp is measured from.
const Epoch = 1420070400000 * int64(time.Millisecond)

// Snowflake is a 64-bit identifier. On the wire it is always a decimal
// string; in memory it is a plain uint64.
type Snowflake uint64

// NullSnowflake is the zero value, used to represent an absent identifier
// (for example a channel-less voice state).
const NullSnowflake Snowflake = 0

// NewSnowflake constructs the Snowflake that Discord would have minted for
// the given point in time. It is mostly useful for constructing
// before/after cursors for paginated endpoints.
func NewSnowflake(t time.Time) Snowflake {
	return Snowflake((t.UnixNano()/int64(time.Millisecond) - Epoch/int64(time.Millisecond)) << 22)
}

// ParseSnowflake parses a decimal Snowflake string.
func ParseSnowflake(s string) (Snowflake, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Snowflake(u), nil
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// IsValid reports whether the Snowflake is non-zero.
func (s Snowflake) IsValid() bool {
	return s != NullSnowflake
}

// Time returns the creation time encoded in the Snowflake.
func (s Snowflake) Time() time.Time {
	return time.Unix(0, (int64(s)>>22)*int64(time.Millisecond)+Epoch)
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	if s == NullSnowflake {
		return []byte("null"), nil
	}
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Snowflake) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" || len(b) == 0 {
		*s = NullSnowflake
		return nil
	}

	u, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}

	*s = Snowflake(u)
	return nil
}

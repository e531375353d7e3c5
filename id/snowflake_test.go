package id

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 175928847299117063, 18446744073709551615}

	for _, v := range values {
		s := Snowflake(v)

		b, err := json.Marshal(s)
		require.NoError(t, err)

		var got Snowflake
		require.NoError(t, json.Unmarshal(b, &got))

		assert.Equal(t, s, got)
	}
}

func TestSnowflakeStringDecimal(t *testing.T) {
	s := Snowflake(175928847299117063)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"175928847299117063"`, string(b))
}

func TestChannelIDNotAssignableToUserID(t *testing.T) {
	// This is a compile-time property: ChannelID and UserID are distinct
	// named types over Snowflake, so the following would fail to compile
	// if uncommented:
	//
	//	var u UserID = ChannelID(1)
	//
	// The test below only exercises that conversion requires an explicit
	// cast, which is the only thing worth asserting at runtime.
	c := ChannelID(123)
	u := UserID(c)
	assert.Equal(t, UserID(123), u)
}

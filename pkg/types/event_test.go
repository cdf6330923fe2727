package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	side, err := ParseSide("a")
	require.NoError(t, err)
	assert.Equal(t, SideA, side)

	side, err = ParseSide("B")
	require.NoError(t, err)
	assert.Equal(t, SideB, side)

	_, err = ParseSide("draw")
	assert.Error(t, err)
}

func TestEventName(t *testing.T) {
	ev := Event{ID: "0x01", SideA: "PSG", SideB: "Barcelona"}

	assert.Equal(t, "PSG", ev.Name(SideA))
	assert.Equal(t, "Barcelona", ev.Name(SideB))
	assert.Equal(t, "", ev.Name(SideNone))
}

func TestParseEventID(t *testing.T) {
	id := "0x00000000000000000000000000000000000000000000000000000000000000ff"

	got, err := ParseEventID(id)
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), got[31])

	_, err = ParseEventID("0x1234")
	assert.Error(t, err)

	_, err = ParseEventID("not-hex")
	assert.Error(t, err)
}

package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Side is one of the two outcomes of an event.
type Side string

const (
	SideNone Side = ""
	SideA    Side = "A"
	SideB    Side = "B"
)

// ParseSide accepts A/B in either case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return SideA, nil
	case "B":
		return SideB, nil
	default:
		return SideNone, fmt.Errorf("unknown side %q", s)
	}
}

// Event is a match that can be bet on. ID is the bytes32 hype id.
type Event struct {
	ID    string `json:"id"`
	SideA string `json:"sideA"`
	SideB string `json:"sideB"`
}

// Name returns the display name for a side.
func (e Event) Name(side Side) string {
	if side == SideA {
		return e.SideA
	}
	if side == SideB {
		return e.SideB
	}
	return ""
}

// ParseEventID decodes a 0x-prefixed 32-byte hex id.
func ParseEventID(id string) ([32]byte, error) {
	var out [32]byte
	raw, err := hexutil.Decode(strings.TrimSpace(id))
	if err != nil {
		return out, fmt.Errorf("decode event id %q: %w", id, err)
	}
	if len(raw) != common.HashLength {
		return out, fmt.Errorf("event id %q must be %d bytes, got %d", id, common.HashLength, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

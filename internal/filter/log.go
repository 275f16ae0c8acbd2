package filter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Log is the minimal shape a LogFilter matches against. go-ethereum's own
// types.Log already has exactly these fields plus a Bloom-compatible address
// and topic representation, so this core matches against it directly rather
// than re-declaring a parallel struct.
type Log = types.Log

// Call is the minimal shape a CallFilter matches against: a destination
// address and the first 4 bytes of calldata (the function selector).
type Call struct {
	To    common.Address
	Input []byte
}

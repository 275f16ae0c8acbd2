// Package publish implements the optional downstream fan-out of
// BlockWithTriggers results over a message broker: a scan consumer, a
// subgraph indexer's own input queue, whatever sits downstream of this
// core. Nothing in §4 requires a caller to use it — blocks_with_triggers
// returns its result directly — but a long-running scan process typically
// wants to push each batch onward as it's produced rather than hold it in
// memory for a synchronous caller.
package publish

import (
	"github.com/goccy/go-json"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

// Envelope is the wire shape a BlockWithTriggers takes on the broker: every
// field hex/string-encoded so a consumer in any language can decode it
// without a Go-specific RLP or gob dependency.
type Envelope struct {
	Number   uint64             `json:"number"`
	Hash     string             `json:"hash"`
	Finality string             `json:"finality"`
	Triggers []TriggerEnvelope  `json:"triggers"`
}

// TriggerEnvelope is one trigger.Trigger flattened to JSON. Kind selects
// which of the remaining fields are populated; a consumer switches on it
// the same way trigger.Trigger's own accessors do internally.
type TriggerEnvelope struct {
	Kind string `json:"kind"`

	// log
	LogAddress string   `json:"log_address,omitempty"`
	LogTopics  []string `json:"log_topics,omitempty"`
	LogData    string   `json:"log_data,omitempty"`
	LogIndex   uint     `json:"log_index,omitempty"`
	TxHash     string   `json:"tx_hash,omitempty"`

	// call
	CallFrom string `json:"call_from,omitempty"`
	CallTo   string `json:"call_to,omitempty"`
	CallData string `json:"call_data,omitempty"`

	// block
	BlockCallTo string `json:"block_call_to,omitempty"`
}

// EncodeEnvelope flattens a BlockWithTriggers into its wire shape.
func EncodeEnvelope(bwt trigger.BlockWithTriggers) Envelope {
	env := Envelope{
		Number:   bwt.Number(),
		Hash:     bwt.Block.Hash().Hex(),
		Finality: finalityString(bwt.Finality),
		Triggers: make([]TriggerEnvelope, 0, len(bwt.Triggers)),
	}

	for _, t := range bwt.Triggers {
		env.Triggers = append(env.Triggers, encodeTrigger(t))
	}
	return env
}

func finalityString(f trigger.Finality) string {
	if f == trigger.Final {
		return "final"
	}
	return "non_final"
}

func encodeTrigger(t trigger.Trigger) TriggerEnvelope {
	if lg, ok := t.Log(); ok {
		topics := make([]string, len(lg.Topics))
		for i, tp := range lg.Topics {
			topics[i] = tp.Hex()
		}
		return TriggerEnvelope{
			Kind:       "log",
			LogAddress: lg.Address.Hex(),
			LogTopics:  topics,
			LogData:    hexEncode(lg.Data),
			LogIndex:   lg.Index,
			TxHash:     lg.TxHash.Hex(),
		}
	}
	if call, ok := t.Call(); ok {
		return TriggerEnvelope{
			Kind:     "call",
			TxHash:   call.TxHash.Hex(),
			CallFrom: call.From.Hex(),
			CallTo:   call.To.Hex(),
			CallData: hexEncode(call.Input),
		}
	}
	ptr, kind, _ := t.Block()
	env := TriggerEnvelope{Kind: "block"}
	_ = ptr
	if kind == trigger.WithCallTo {
		env.BlockCallTo = t.BlockCallTo().Hex()
	}
	return env
}

func hexEncode(data []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(data)*2+2)
	out[0], out[1] = '0', 'x'
	for i, b := range data {
		out[2+i*2] = hextable[b>>4]
		out[3+i*2] = hextable[b&0x0f]
	}
	return string(out)
}

// Marshal encodes bwt as the JSON payload a broker message carries, using
// goccy/go-json for the same drop-in speedup the rest of this stack relies
// on for its wire encodings.
func Marshal(bwt trigger.BlockWithTriggers) ([]byte, error) {
	return json.Marshal(EncodeEnvelope(bwt))
}

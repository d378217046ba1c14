// Package record implements the signed, checksummed record model and its
// one-store-per-kind, one-file-per-record content store.
package record

import (
	"github.com/gitgovernance/core/internal/crypto"
)

// SchemaVersion is the Header.Version every adapter stamps on records it
// creates.
const SchemaVersion = "1.0.0"

// Kind enumerates the record types persisted by the kernel.
type Kind string

const (
	KindActor     Kind = "actor"
	KindAgent     Kind = "agent"
	KindTask      Kind = "task"
	KindCycle     Kind = "cycle"
	KindFeedback  Kind = "feedback"
	KindExecution Kind = "execution"
	KindChangelog Kind = "changelog"
)

// Header carries the envelope metadata common to every record: schema
// version, kind, the payload's canonical checksum, and the ordered
// signature chain (first entry is the author).
type Header struct {
	Version         string             `json:"version"`
	Type            Kind               `json:"type"`
	PayloadChecksum string             `json:"payloadChecksum"`
	Signatures      []crypto.Signature `json:"signatures"`
}

// Record pairs a Header with a payload of type P. P is typically one of the
// payload structs in the validate package (TaskPayload, CyclePayload, ...).
type Record[P any] struct {
	Header  Header `json:"header"`
	Payload P      `json:"payload"`
}

// Author returns the first (author) signature, or the zero Signature if the
// record somehow carries none (callers should treat that as invalid per the
// "non-empty ordered sequence" invariant).
func (r Record[P]) Author() crypto.Signature {
	if len(r.Header.Signatures) == 0 {
		return crypto.Signature{}
	}
	return r.Header.Signatures[0]
}

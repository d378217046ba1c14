// Package common holds the record-signing helpers shared by every domain
// adapter (feedback, execution, changelog, backlog): computing a payload's
// checksum, obtaining a signature from the identity adapter, and assembling
// or extending a record.Record's header. Domain-specific state-machine and
// query logic stays in each adapter package.
package common

import (
	"github.com/gitgovernance/core/internal/crypto"
	"github.com/gitgovernance/core/internal/identity"
	"github.com/gitgovernance/core/internal/record"
)

// Signer is the subset of identity.Adapter the common helpers need, so
// adapter packages can be tested against a fake.
type Signer interface {
	SignRecord(signerID, role, notes, checksum string) (crypto.Signature, error)
}

var _ Signer = (*identity.Adapter)(nil)

// NewRecord builds the first-signed record.Record[P] for payload: computes
// its checksum, obtains signerID's signature via signer, and stamps the
// current schema version and kind.
func NewRecord[P any](payload P, kind record.Kind, signer Signer, signerID, role, notes string) (record.Record[P], error) {
	var rec record.Record[P]

	checksum, err := crypto.CanonicalChecksum(payload)
	if err != nil {
		return rec, err
	}
	sig, err := signer.SignRecord(signerID, role, notes, checksum)
	if err != nil {
		return rec, err
	}
	rec = record.Record[P]{
		Header: record.Header{
			Version:         record.SchemaVersion,
			Type:            kind,
			PayloadChecksum: checksum,
			Signatures:      []crypto.Signature{sig},
		},
		Payload: payload,
	}
	return rec, nil
}

// Resign recomputes rec's checksum from its (already-updated) Payload and
// appends signerID's signature to the signature chain — used whenever an
// adapter mutates a record in place (e.g. a task status change).
func Resign[P any](rec record.Record[P], signer Signer, signerID, role, notes string) (record.Record[P], error) {
	checksum, err := crypto.CanonicalChecksum(rec.Payload)
	if err != nil {
		return rec, err
	}
	sig, err := signer.SignRecord(signerID, role, notes, checksum)
	if err != nil {
		return rec, err
	}
	rec.Header.PayloadChecksum = checksum
	rec.Header.Signatures = append(rec.Header.Signatures, sig)
	return rec, nil
}

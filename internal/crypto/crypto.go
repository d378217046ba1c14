// Package crypto provides Ed25519 key generation, signing, verification, and
// canonical payload hashing for signed content-addressed records.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// CryptoError wraps malformed-key and verification-path failures so callers
// can distinguish them from ordinary I/O errors with errors.As.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CryptoError{Op: op, Err: err}
}

// Signature is an Ed25519 signature over the hex-encoded payload checksum,
// attributed to an actor via KeyID and annotated with a role and free-form
// notes. Timestamp is RFC 3339.
type Signature struct {
	KeyID     string `json:"keyId"`
	Role      string `json:"role"`
	Notes     string `json:"notes,omitempty"`
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
}

// GenerateKeys creates a new Ed25519 key pair. Both keys are base64-encoded
// (standard encoding) for storage in records and keystore files.
func GenerateKeys() (publicKey string, privateKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", wrap("generateKeys", err)
	}
	return base64.StdEncoding.EncodeToString(pub), base64.StdEncoding.EncodeToString(priv), nil
}

// CanonicalChecksum computes the SHA-256 hex digest of payload's canonical
// serialization: object keys sorted lexicographically at every level, no
// insignificant whitespace, UTF-8 bytes, numbers in Go's shortest
// round-trip form (encoding/json's default float/int formatting already
// satisfies this).
//
// payload may be any JSON-marshalable value, typically a map[string]any or a
// record payload struct with `json` tags.
func CanonicalChecksum(payload any) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", wrap("canonicalChecksum", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize serializes payload into its canonical byte form: marshal to
// a generic JSON value, then re-emit with object keys sorted at every
// level. This two-pass approach guarantees determinism regardless of
// struct field order or map iteration order.
func Canonicalize(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf []byte
	buf, err = appendCanonical(buf, generic)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf, err = appendCanonical(buf, val[k])
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, '}')
		return buf, nil
	case []any:
		buf = append(buf, '[')
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonical(buf, item)
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	}
}

// SignPayload signs the hex checksum string of payload with privateKey
// (base64-encoded Ed25519 private key), producing a Signature attributed to
// keyId/role with the given notes and the current time as Timestamp.
//
// checksum, not payload itself, is what gets signed: this keeps the bytes
// signed identical to the bytes hashed, so verification never needs the
// original payload, only its checksum.
func SignPayload(checksum string, privateKey string, keyID string, role string, notes string, now func() string) (Signature, error) {
	priv, err := decodePrivateKey(privateKey)
	if err != nil {
		return Signature{}, wrap("signPayload", err)
	}
	sig := ed25519.Sign(priv, []byte(checksum))
	return Signature{
		KeyID:     keyID,
		Role:      role,
		Notes:     notes,
		Signature: base64.StdEncoding.EncodeToString(sig),
		Timestamp: now(),
	}, nil
}

// VerifySignature reports whether sig verifies against publicKey
// (base64-encoded Ed25519 public key) for the given checksum string.
func VerifySignature(sig Signature, publicKey string, checksum string) (bool, error) {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return false, wrap("verifySignature", err)
	}
	raw, err := base64.StdEncoding.DecodeString(sig.Signature)
	if err != nil {
		return false, wrap("verifySignature", err)
	}
	return ed25519.Verify(pub, []byte(checksum), raw), nil
}

func decodePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.New("private key has wrong size")
	}
	return ed25519.PrivateKey(raw), nil
}

func decodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("public key has wrong size")
	}
	return ed25519.PublicKey(raw), nil
}

package record

import (
	"context"
	"testing"

	"github.com/gitgovernance/core/internal/crypto"
)

type demoPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func signedDemo(t *testing.T, id, status string) (Record[demoPayload], string) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys: %v", err)
	}
	payload := demoPayload{ID: id, Status: status}
	checksum, err := crypto.CanonicalChecksum(payload)
	if err != nil {
		t.Fatalf("CanonicalChecksum: %v", err)
	}
	sig, err := crypto.SignPayload(checksum, priv, "actor:demo", "author", "", func() string { return "2026-01-01T00:00:00Z" })
	if err != nil {
		t.Fatalf("SignPayload: %v", err)
	}
	rec := Record[demoPayload]{
		Header:  Header{Version: SchemaVersion, Type: KindTask, PayloadChecksum: checksum, Signatures: []crypto.Signature{sig}},
		Payload: payload,
	}
	return rec, pub
}

func resolverFor(keyID, pub string) KeyResolver {
	return func(k string) (string, bool) {
		if k == keyID {
			return pub, true
		}
		return "", false
	}
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	rec, pub := signedDemo(t, "1-task-demo", "draft")
	if err := Validate("1-task-demo", rec, resolverFor("actor:demo", pub)); err != nil {
		t.Errorf("expected a well-formed record to validate, got %v", err)
	}
}

func TestValidate_RejectsChecksumMismatch(t *testing.T) {
	rec, pub := signedDemo(t, "1-task-demo", "draft")
	rec.Payload.Status = "review" // mutate after signing, without resigning

	err := Validate("1-task-demo", rec, resolverFor("actor:demo", pub))
	if err == nil {
		t.Fatal("expected a checksum mismatch error")
	}
	if _, ok := err.(*ErrChecksumMismatch); !ok {
		t.Errorf("expected *ErrChecksumMismatch, got %T", err)
	}
}

func TestValidate_RejectsMissingSignatures(t *testing.T) {
	rec, pub := signedDemo(t, "1-task-demo", "draft")
	rec.Header.Signatures = nil

	err := Validate("1-task-demo", rec, resolverFor("actor:demo", pub))
	if err == nil {
		t.Fatal("expected an error for a record with no signatures")
	}
	if _, ok := err.(*ErrSignature); !ok {
		t.Errorf("expected *ErrSignature, got %T", err)
	}
}

func TestValidate_RejectsUnknownKeyID(t *testing.T) {
	rec, _ := signedDemo(t, "1-task-demo", "draft")

	resolver := func(string) (string, bool) { return "", false }
	err := Validate("1-task-demo", rec, resolver)
	if err == nil {
		t.Fatal("expected an error for an unresolvable keyId")
	}
}

func TestValidate_RejectsForgedSignature(t *testing.T) {
	rec, _ := signedDemo(t, "1-task-demo", "draft")
	_, otherPub := signedDemo(t, "1-task-other", "draft")

	// Re-resolve the original keyId to a different key than the one that
	// actually signed it.
	err := Validate("1-task-demo", rec, resolverFor("actor:demo", otherPub))
	if err == nil {
		t.Fatal("expected an error when the resolved key does not match the signer")
	}
}

func TestAuthor_ReturnsFirstSignature(t *testing.T) {
	rec, _ := signedDemo(t, "1-task-demo", "draft")
	if rec.Author().KeyID != "actor:demo" {
		t.Errorf("expected author keyId actor:demo, got %q", rec.Author().KeyID)
	}

	var empty Record[demoPayload]
	if empty.Author().KeyID != "" {
		t.Errorf("expected a zero Signature for a record with no signatures, got %+v", empty.Author())
	}
}

func TestFileStore_PutGetListExistsDelete(t *testing.T) {
	store, err := NewFileStore[demoPayload](t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	rec, pub := signedDemo(t, "1-task-demo", "draft")
	resolver := resolverFor("actor:demo", pub)

	if err := store.Put(ctx, "1-task-demo", rec, resolver); err != nil {
		t.Fatalf("Put: %v", err)
	}

	t.Run("Exists reports true after Put", func(t *testing.T) {
		ok, err := store.Exists(ctx, "1-task-demo")
		if err != nil || !ok {
			t.Fatalf("expected Exists true, got %v, %v", ok, err)
		}
	})

	t.Run("Get round-trips and re-validates", func(t *testing.T) {
		got, err := store.Get(ctx, "1-task-demo", resolver)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Payload.Status != "draft" {
			t.Errorf("expected status draft, got %q", got.Payload.Status)
		}
	})

	t.Run("List includes the written id", func(t *testing.T) {
		ids, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(ids) != 1 || ids[0] != "1-task-demo" {
			t.Fatalf("expected [1-task-demo], got %v", ids)
		}
	})

	t.Run("Delete removes it", func(t *testing.T) {
		if err := store.Delete(ctx, "1-task-demo"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		ok, err := store.Exists(ctx, "1-task-demo")
		if err != nil || ok {
			t.Fatalf("expected Exists false after Delete, got %v, %v", ok, err)
		}
	})

	t.Run("Get on a missing id returns ErrRecordNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "1-task-missing", resolver)
		if _, ok := err.(*ErrRecordNotFound); !ok {
			t.Errorf("expected *ErrRecordNotFound, got %T (%v)", err, err)
		}
	})
}

func TestFileStore_PutRejectsInvalidRecord(t *testing.T) {
	store, err := NewFileStore[demoPayload](t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec, pub := signedDemo(t, "1-task-demo", "draft")
	rec.Payload.Status = "tampered"

	if err := store.Put(context.Background(), "1-task-demo", rec, resolverFor("actor:demo", pub)); err == nil {
		t.Fatal("expected Put to reject a record whose checksum no longer matches its payload")
	}
}

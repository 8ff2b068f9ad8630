// Package testkit holds the conformance suite every envelope Store
// implementation must pass.
package testkit

import (
	"bytes"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/keygate/envelope"
	"xdao.co/keygate/storage"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		st := newStore(t)
		want := []byte("sealed envelope bytes")

		id, err := st.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := storage.HandleFor(want)
		if err != nil {
			t.Fatalf("HandleFor failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put handle mismatch: got %s want %s", id, wantID)
		}

		got, err := st.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		st := newStore(t)
		b := []byte("same bytes")

		id1, err := st.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := st.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		st := newStore(t)
		b := []byte("missing")
		id, err := storage.HandleFor(b)
		if err != nil {
			t.Fatalf("HandleFor failed: %v", err)
		}

		if st.Has(id) {
			t.Fatalf("Has returned true for missing handle")
		}
		_, err = st.Get(id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := st.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !st.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefHandle", func(t *testing.T) {
		st := newStore(t)
		var undef cid.Cid
		if st.Has(undef) {
			t.Fatalf("Has should be false for undefined handle")
		}
		if _, err := st.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined handle")
		}
	})

	t.Run("DistinctPayloadsDistinctHandles", func(t *testing.T) {
		st := newStore(t)
		id1, err := st.Put([]byte("edition one"))
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := st.Put([]byte("edition two"))
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 == id2 {
			t.Fatalf("distinct payloads collided on handle %s", id1)
		}
		b1, err := st.Get(id1)
		if err != nil {
			t.Fatalf("Get(1) failed: %v", err)
		}
		if !bytes.Equal(b1, []byte("edition one")) {
			t.Fatalf("handle %s returned the wrong payload", id1)
		}
	})

	// The store's payloads are sealed envelopes in production: the handle a
	// subscriber presents during the handshake is the handle of exactly the
	// persisted envelope JSON.
	t.Run("SealedEnvelopeSurvivesStorage", func(t *testing.T) {
		st := newStore(t)
		key, err := envelope.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		plaintext := []byte("the gated edition body")
		env, err := envelope.Seal(plaintext, key, envelope.Metadata{
			Title: "Edition 1", Date: time.Unix(1_700_000_000, 0),
		})
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		persisted, err := env.Marshal()
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}

		id, err := st.Put(persisted)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		fetched, err := st.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		restored, err := envelope.Unmarshal(fetched)
		if err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if restored.Title != "Edition 1" {
			t.Fatalf("public metadata lost: %q", restored.Title)
		}
		opened, err := envelope.Open(restored, key)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(opened, plaintext) {
			t.Fatalf("stored envelope no longer opens to the original payload")
		}
	})
}

package memstore

import (
	"testing"

	"xdao.co/keygate/storage"
	"xdao.co/keygate/storage/testkit"
)

func TestMemStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		return New()
	})
}

func TestMemStore_RejectConflictingBytes(t *testing.T) {
	st := New()
	if _, err := st.Put([]byte("a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Force a conflicting object under the same handle.
	id, err := storage.HandleFor([]byte("a"))
	if err != nil {
		t.Fatalf("HandleFor failed: %v", err)
	}
	st.mu.Lock()
	st.objects[id] = []byte("b")
	st.mu.Unlock()

	if _, err := st.Put([]byte("a")); err != storage.ErrImmutable {
		t.Fatalf("Put conflict: got %v want %v", err, storage.ErrImmutable)
	}
}

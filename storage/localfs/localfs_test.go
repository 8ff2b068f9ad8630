package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"xdao.co/keygate/storage"
	"xdao.co/keygate/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		dir := t.TempDir()
		st, err := New(dir)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return st
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte("original")
	id, err := st.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := st.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must detect the hash mismatch.
	if _, err := st.Get(id); err != storage.ErrHandleMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrHandleMismatch)
	}

	// Put must not "repair" or overwrite the corrupted object.
	if _, err := st.Put(orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
}

func TestLocalFS_VerifyReportsCorruptedObjects(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := st.Put([]byte("intact envelope")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	victim, err := st.Put([]byte("envelope to be corrupted"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// A foreign file under the root is not an object and must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("scratch"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := st.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("clean store reported corruption: %v", got)
	}

	path := st.pathFor(victim)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("flipped bits"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err = st.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(got) != 1 || got[0] != victim {
		t.Fatalf("Verify: got %v want [%s]", got, victim)
	}
}

package localfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/keygate/storage"
)

// Store is a local filesystem-backed envelope store.
//
// Objects are stored immutably and keyed strictly by handle. The store is
// offline and deterministic: it never uses the network and never depends on
// wall-clock time.
type Store struct {
	root string
}

// New constructs a filesystem store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(bytes []byte) (cid.Cid, error) {
	id, err := storage.HandleFor(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidHandle
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(id)
			if rerr != nil {
				// If the file exists but is unreadable or corrupted, treat as an immutability violation.
				return cid.Undef, storage.ErrImmutable
			}
			if string(existing) != string(bytes) {
				return cid.Undef, storage.ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(bytes); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}

	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHandle
	}
	path := s.pathFor(id)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	got, err := storage.HandleFor(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrHandleMismatch
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

// Verify re-derives the handle of every stored object and returns the
// handles whose bytes no longer match. The store never repairs; callers
// restore a corrupted object by re-sealing and re-putting it.
func (s *Store) Verify() ([]cid.Cid, error) {
	var corrupted []cid.Cid
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		id, err := storage.ParseHandle(d.Name())
		if err != nil {
			// Foreign files under the root are not objects.
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got, err := storage.HandleFor(b)
		if err != nil {
			return err
		}
		if got != id {
			corrupted = append(corrupted, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrupted, nil
}

func (s *Store) pathFor(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	return filepath.Join(s.root, str[:2], str)
}

// Package localfs keeps an archive of reference payloads in a directory.
//
// Files are named by reference hash under a fan-out directory taken from the
// end of the CID, since every CIDv1 shares its leading characters. Files are
// written read-only and reads rehash them with the algorithm the CID names.
package localfs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/graphwire/storage"
)

type CAS struct {
	root string
}

var _ storage.CAS = (*CAS)(nil)

// New opens the archive rooted at root, creating the directory if needed.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	return &CAS{root: root}, nil
}

func (c *CAS) Root() string { return c.root }

// Put stores payload under id. An id whose file already exists is accepted
// only when the stored bytes are identical.
func (c *CAS) Put(id cid.Cid, payload []byte) error {
	if err := storage.Check(id, payload); err != nil {
		return err
	}
	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("localfs: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if os.IsExist(err) {
		existing, rerr := c.Get(id)
		if rerr != nil || !bytes.Equal(existing, payload) {
			return storage.ErrImmutable
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("localfs: %w", err)
	}
	if err := writeAndSync(f, payload); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("localfs: %w", err)
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	if err := storage.Check(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[len(s)-2:], s)
}

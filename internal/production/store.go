package production

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/comalice/smartstate"
)

// Store persists envelopes under an id.
type Store interface {
	Save(ctx context.Context, id string, env Envelope) error
	Load(ctx context.Context, id string) (Envelope, error)
}

// FileStore keeps one file per id in a directory, encoded in a fixed format.
type FileStore struct {
	dir    string
	format Format
}

// NewFileStore creates a FileStore, ensuring the directory exists.
func NewFileStore(dir string, format Format) (*FileStore, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, format: format}, nil
}

func (p *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid snapshot id %q", id)
	}
	return filepath.Join(p.dir, id+p.format.Ext()), nil
}

func (p *FileStore) Save(ctx context.Context, id string, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := p.path(id)
	if err != nil {
		return err
	}
	data, err := Encode(env, p.format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (p *FileStore) Load(ctx context.Context, id string) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	fn, err := p.path(id)
	if err != nil {
		return Envelope{}, err
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Envelope{}, fmt.Errorf("snapshot %q: %w", id, os.ErrNotExist)
		}
		return Envelope{}, fmt.Errorf("read %s: %w", fn, err)
	}
	return Decode(data, p.format)
}

// SaveState captures s and saves it under id.
func SaveState(ctx context.Context, st Store, id string, s *smartstate.State) error {
	return st.Save(ctx, id, NewEnvelope(s))
}

// LoadState loads the envelope under id and restores it through r.
func LoadState(ctx context.Context, st Store, r *Registry, id string, opts ...smartstate.Option) (*smartstate.State, error) {
	env, err := st.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Restore(env, opts...)
}

package snapfile

import (
	"github.com/rawbytedev/relo"
)

// Write serializes the graph rooted at v into a framed snapshot at path.
func Write[T any](path string, v *T) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := relo.SerializeTo(w, v); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Load maps the snapshot at path and rebases it in place. The returned root
// aliases the mapping and is valid until the mapping is closed; closing the
// mapping is the caller's job. Each Load maps a fresh private copy, so the
// single-use rebase constraint is per call, not per file.
func Load[T any](path string) (*T, *Mapping, error) {
	m, err := Map(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := relo.Deserialize[T](m.Payload())
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return root, m, nil
}

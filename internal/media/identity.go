package media

import (
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// IDSeed is the fixed XXH64 seed for file identities. Changing it
// re-keys every persisted index.
const IDSeed uint64 = 0x7065612d69647331

// ID returns the stable identity of path: XXH64 with IDSeed over the
// cleaned, slash-separated path. Equal paths give equal ids on every
// platform and process.
func ID(path string) uint64 {
	d := xxhash.NewWithSeed(IDSeed)
	_, _ = d.WriteString(filepath.ToSlash(filepath.Clean(path)))
	return d.Sum64()
}

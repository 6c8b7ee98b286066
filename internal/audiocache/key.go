package audiocache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DeriveKey returns a stable 16 hex character key for a clip. The key is
// sensitive to the order of its inputs and is not collision resistant;
// Cache.Get compares the stored source fields before serving a hit.
func DeriveKey(text, voice, provider string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(provider+":"+voice+":"+text))
}

package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint derives a stable cache key from a logical request kind and its
// identifying parameters. Parameters are serialized in sorted key order so
// identical logical requests always hash identically, and the kind prefixes
// the key so different request types with the same identifier never collide.
func Fingerprint(kind string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	return fmt.Sprintf("%s:%016x", kind, xxhash.Sum64String(b.String()))
}

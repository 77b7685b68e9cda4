package uarr

import (
	"hash/fnv"

	"golang.org/x/text/unicode/norm"
)

// NameHash returns the FNV-1a 64-bit hash of a field name.
//
// Names are NFC-normalized before hashing so visually identical keys that
// differ only in Unicode composition hash alike. The name table always
// carries the exact original spelling; the hash only keys the fixed-size
// descriptor.
func NameHash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(norm.NFC.String(name)))
	return h.Sum64()
}

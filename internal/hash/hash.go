// Package hash computes the content digest used for change detection.
package hash

import "github.com/cespare/xxhash/v2"

// Sum returns a fast, stable 64-bit digest of data.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

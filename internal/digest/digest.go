// Package digest computes short content digests for JSON documents.
package digest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/minio/highwayhash"
)

var key = []byte("ocdsmerge-digest-key-0123456789AB")[:32]

// Sum64 hashes data with a fixed highwayhash key.
func Sum64(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	if _, err := hash.Write(data); err != nil {
		return 0, err
	}
	return hash.Sum64(), nil
}

// Document returns a hex digest of value's JSON encoding. encoding/json sorts
// object keys, so equal documents produce equal digests.
func Document(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("digest: marshal document: %w", err)
	}
	sum, err := Sum64(data)
	if err != nil {
		return "", fmt.Errorf("digest: hash document: %w", err)
	}
	return strconv.FormatUint(sum, 16), nil
}

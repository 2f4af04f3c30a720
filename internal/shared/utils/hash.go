package utils

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Blake2bHex returns the hex BLAKE2b digest of data. size is the digest
// length in bytes (1..64).
func Blake2bHex(data []byte, size int) (string, error) {
	if size < 1 || size > blake2b.Size {
		return "", fmt.Errorf("invalid digest length %d bytes", size)
	}
	h, err := blake2b.New(size, nil)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

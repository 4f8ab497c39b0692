// this file contains the checksum functions used to build pass manifests
//
// The pass manifest (manifest.json) lists the SHA-1 hash of every file in the archive.
// SHA-1 is mandated by the Wallet archive format; it is not used as a signature digest.

package crypto

import (
	"crypto/sha1" // #nosec G505 -- SHA-1 is required by the pass manifest format
	"crypto/sha256"
	"encoding/hex"
)

// SHA1Hex calculates the SHA-1 checksum of data and returns it as a lower case hex string
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// CalculateSHA256Hex calculates the SHA-256 checksum of data and returns it as a hex string
func CalculateSHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifySHA1Checksum verifies that data matches the expected SHA-1 checksum
func VerifySHA1Checksum(data []byte, expectedChecksum string) bool {
	return SHA1Hex(data) == expectedChecksum
}

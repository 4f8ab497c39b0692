// pass.json is written in canonical form (RFC 8785) so that an unchanged pass produces an identical
// manifest checksum on every build. This implementation uses the gowebpki/jcs library.
package crypto

import (
	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	return jcs.Transform(jsonData)
}

// crypto package provides the cryptographic functions used to build pass archives.
//
// It loads the pass type certificate, its private key and the WWDR intermediate certificate,
// produces the SHA-1 file checksums written to manifest.json and creates the detached PKCS#7
// signature over the manifest.
//
// these are low level functions - the pkpass package assembles them into signed archives.
package crypto

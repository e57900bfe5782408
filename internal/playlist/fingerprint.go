package playlist

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintDomain separates playlist digests from any other SHA-256
// use. The version suffix enables future algorithm migration.
const fingerprintDomain = "pulsedeck/playlist/v1"

// Fingerprint computes the content digest of an encoded playlist:
// SHA256(domain + 0x00 + encoded), hex. The null separator prevents
// domain/data boundary ambiguity.
//
// The digest is the playlist's identity in the store and the anchor for
// replay drift detection. It is computed over the canonical wire
// encoding, so logically equal playlists share a fingerprint.
func Fingerprint(encoded []byte) string {
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}

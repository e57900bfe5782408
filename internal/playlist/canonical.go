package playlist

import "golang.org/x/text/unicode/norm"

// CanonicalName returns the NFC normalization of a channel name or
// signal label. Equality and uniqueness checks throughout the validator
// compare canonical forms, so names are normalized once at assembly
// (the Builder, which the authoring loader goes through) rather than at
// every comparison. The wire decoder does not normalize: decoded bytes
// round-trip exactly as written.
func CanonicalName(s string) string {
	return norm.NFC.String(s)
}

package wire

import (
	"encoding/binary"
	"math"
)

// EncodeSamples serializes a complex sample vector as a uint32 count
// followed by big-endian (real, imag) float64 pairs. The store uses
// this for result payloads so stored data shares the playlist
// encoding's byte order and float representation.
func EncodeSamples(s []complex128) []byte {
	b := make([]byte, 4, 4+16*len(s))
	binary.BigEndian.PutUint32(b, uint32(len(s)))
	for _, c := range s {
		b = binary.BigEndian.AppendUint64(b, math.Float64bits(real(c)))
		b = binary.BigEndian.AppendUint64(b, math.Float64bits(imag(c)))
	}
	return b
}

// DecodeSamples parses a vector written by EncodeSamples. Failures are
// *DecodeError with the same codes as Decode.
func DecodeSamples(b []byte) ([]complex128, error) {
	d := &decoder{b: b}
	n, err := d.count(16)
	if err != nil {
		return nil, err
	}
	var out []complex128
	for i := 0; i < n; i++ {
		var re, im float64
		if err := d.f64s(&re, &im); err != nil {
			return nil, err
		}
		out = append(out, complex(re, im))
	}
	if d.off != len(d.b) {
		return nil, d.fail(MalformedEncoding, d.off, "%d trailing byte(s)", len(d.b)-d.off)
	}
	return out, nil
}

package opaque

import "crypto/subtle"

// Equal reports whether a and b are equal in time that depends only on the
// length of the longer input. subtle.ConstantTimeCompare returns early on a
// length mismatch, so the shorter side is padded with zeros instead.
func Equal(a, b string) bool {
	n := max(len(a), len(b))

	var diff byte
	for i := range n {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		diff |= x ^ y
	}

	sameLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	return subtle.ConstantTimeByteEq(diff, 0)&sameLen == 1
}

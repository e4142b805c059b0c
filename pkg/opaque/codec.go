package opaque

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64URL encodes b with the URL-safe alphabet and no padding.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL is the inverse of EncodeBase64URL. Trailing padding is
// tolerated. Any malformed input returns false.
func DecodeBase64URL(s string) ([]byte, bool) {
	s = strings.TrimRight(s, "=")
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

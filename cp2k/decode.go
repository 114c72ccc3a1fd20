package cp2k

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts the raw bytes of a log or restart file to text. A
// byte-order mark selects UTF-16 decoding, otherwise the input must be
// valid UTF-8. Any leading BOM is dropped.
func Decode(raw []byte) (string, error) {
	t := transform.Chain(
		unicode.BOMOverride(encoding.Nop.NewDecoder()),
		encoding.UTF8Validator,
	)
	out, _, err := transform.Bytes(t, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutputUnreadable, err)
	}
	return string(out), nil
}

package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// HashLength is the number of hex characters kept from the SHA-256 digest.
const HashLength = 32

// Hash returns the first HashLength hex characters of the SHA-256 digest of
// the value's string form. It depends only on its input, so equal identifiers
// in different tables hash to equal values and joins survive anonymization.
// Hash(42) == Hash("42").
func Hash(value any) string {
	sum := sha256.Sum256([]byte(stringify(value)))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// stringify renders a cell as text. Numbers use their shortest decimal form
// and times use RFC 3339.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	}
	if s, err := cast.ToStringE(value); err == nil {
		return s
	}
	return fmt.Sprint(value)
}

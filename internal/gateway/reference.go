package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const referencePrefix = "SOW"

// GenerateReference returns a unique transaction reference of the form
// SOW_<base36 unix millis>_<8 hex chars>, uppercased. The timestamp keeps
// references roughly sortable; the random suffix guards against collisions
// within the same millisecond.
func GenerateReference() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// a nanosecond suffix rather than panicking in a payment path.
		return strings.ToUpper(fmt.Sprintf("%s_%s_%08x", referencePrefix, ts, time.Now().UnixNano()&0xffffffff))
	}

	return strings.ToUpper(fmt.Sprintf("%s_%s_%s", referencePrefix, ts, hex.EncodeToString(buf)))
}

package hashutil

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/igs-sky/1A2B-Game/internal/bytespool"
)

// SerializedSha1FromTime derives a hex identity token from the current
// clock. Used for clients that connect without one of their own.
func SerializedSha1FromTime() string {
	buf := bytespool.Get()
	defer bytespool.Put(buf)

	buf.WriteString(strconv.FormatInt(time.Now().UnixNano(), 10))
	hash := sha1.Sum(buf.Bytes())

	return hex.EncodeToString(hash[:])
}

package tracking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/affiliateboard/backend/internal/models"
)

const maxVisitorIDLength = 128

// VisitorID picks the identifier events are deduplicated by: the client fingerprint
// when one was sent, otherwise a hash of ip, user agent and the UTC day. The day in
// the hash means anonymous visitors cannot be followed across days.
func VisitorID(fingerprint, ip, userAgent, salt string, now time.Time) string {
	if fp := strings.TrimSpace(fingerprint); fp != "" {
		if len(fp) > maxVisitorIDLength {
			fp = fp[:maxVisitorIDLength]
		}
		return fp
	}

	sum := sha256.Sum256([]byte(strings.Join([]string{salt, models.DateKey(now), ip, userAgent}, "|")))
	return "anon-" + hex.EncodeToString(sum[:16])
}

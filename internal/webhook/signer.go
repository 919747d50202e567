// Package webhook signs and delivers alert events to an external HTTP
// endpoint.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSignature creates HMAC-SHA256 signature for a delivery body.
// The canonical string format is: "{timestamp}.{payloadJSON}". Receivers
// recompute it from the X-Assetwatch-Timestamp header and the raw body and
// compare with hmac.Equal; docs/examples/alert-webhook-receiver does so.
func GenerateSignature(secret string, timestamp int64, payloadJSON []byte) string {
	canonical := fmt.Sprintf("%d.%s", timestamp, string(payloadJSON))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

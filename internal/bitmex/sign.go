package bitmex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/gr-satt/bordem/internal/ports"
)

// expiryWindow is the freshness budget granted to a signed request. The
// server rejects any request observed after its api-expires timestamp.
const expiryWindow = 5 * time.Second

// Sign computes the request signature for the exchange's HMAC auth scheme.
//
// The canonical message is VERB + PATH[?QUERY] + EXPIRES + BODY, where VERB is
// upper case, PATH?QUERY is the exact request URI as serialized on the wire,
// EXPIRES is the decimal unix-seconds expiry and BODY is the raw request body
// (empty string for bodyless requests). The signature is the lowercase hex
// HMAC-SHA256 of that message keyed by the API secret.
//
// Sign is pure: identical inputs (including now) always yield the same
// signature. A signature is only valid for the exact tuple it was computed
// from; any re-encoding of the URI or body after signing invalidates it.
func Sign(secret, verb, pathWithQuery, body string, now time.Time) (signature string, expires int64, err error) {
	if secret == "" {
		return "", 0, ports.ErrMissingSecret
	}

	expires = now.Unix() + int64(expiryWindow/time.Second)

	var msg strings.Builder
	msg.WriteString(strings.ToUpper(verb))
	msg.WriteString(pathWithQuery)
	msg.WriteString(strconv.FormatInt(expires, 10))
	msg.WriteString(body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg.String()))
	return hex.EncodeToString(mac.Sum(nil)), expires, nil
}

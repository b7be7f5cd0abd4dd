// Package crypto provides HMAC request signing for the exchange connectors
// and the encrypted credential store.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// SignQuery computes the hex-encoded HMAC-SHA256 signature of a query string,
// keyed by the API secret. Binance expects this appended to the request as the
// "signature" query parameter.
func SignQuery(secret, query string) string {
	return hmacSHA256Hex([]byte(secret), query)
}

// CoinbaseHeaders returns the authentication headers for a Coinbase API
// request. The signature is HMAC-SHA256(secret, timestamp+method+path+body)
// encoded as hex.
//
// Returned header keys:
//   - CB-ACCESS-KEY
//   - CB-ACCESS-SIGN
//   - CB-ACCESS-TIMESTAMP
func CoinbaseHeaders(key, secret, method, path, body string) map[string]string {
	return CoinbaseHeadersAt(key, secret, method, path, body, time.Now().Unix())
}

// CoinbaseHeadersAt is like CoinbaseHeaders but lets the caller supply the
// Unix timestamp (useful for deterministic testing).
func CoinbaseHeadersAt(key, secret, method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Hex([]byte(secret), message)

	return map[string]string{
		"CB-ACCESS-KEY":       key,
		"CB-ACCESS-SIGN":      sig,
		"CB-ACCESS-TIMESTAMP": ts,
	}
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result as a hex-encoded string.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

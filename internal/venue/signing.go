package venue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"
)

// OKXSignature signs a REST or WebSocket-login request per OKX's recipe:
// base64(HMAC-SHA256(timestamp+method+path+body, secret)). Grounded on
// original_source's generate_okx_signature.
func OKXSignature(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// OKXTimestamp returns an OKX-format ISO8601 millisecond timestamp.
func OKXTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// BybitWSLoginSignature signs a WebSocket private-channel login per
// Bybit's recipe: hex(HMAC-SHA256("GET/realtime" + expiresMs, secret)).
// Grounded on original_source's bybit.py signature helper.
func BybitWSLoginSignature(secret string, expiresMs int64) string {
	payload := "GET/realtime" + strconv.FormatInt(expiresMs, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// BybitRESTSignature signs a Bybit v5 REST request: hex(HMAC-SHA256(
// timestamp+apiKey+recvWindow+queryStringOrBody, secret)).
func BybitRESTSignature(secret, timestamp, apiKey, recvWindow, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + apiKey + recvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

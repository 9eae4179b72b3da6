package utils

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// TransparentGIF returns a 1x1 transparent GIF
func TransparentGIF() []byte {
	// This is a base64 encoded 1x1 transparent GIF
	const transparentPixel = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"
	decoded, _ := base64.StdEncoding.DecodeString(transparentPixel)
	return decoded
}

// GetIPAddress gets the real IP address from request
func GetIPAddress(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return strings.Split(r.RemoteAddr, ":")[0]
}

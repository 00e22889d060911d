package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// BasicValue builds an HTTP Basic Authorization header value from a
// username and password.
func BasicValue(username, password string) string {
	credentials := fmt.Sprintf("%s:%s", username, password)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// DecodeBasic reverses BasicValue. The "Basic " prefix is optional.
func DecodeBasic(header string) (username, password string, err error) {
	encoded := strings.TrimPrefix(header, "Basic ")

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode Basic auth: %w", err)
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid Basic auth format (expected username:password)")
	}
	return parts[0], parts[1], nil
}

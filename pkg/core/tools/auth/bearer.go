// Package auth builds credential header values and obtains OAuth 2.0
// access tokens for requests.
package auth

// BearerValue wraps a token in the "Bearer <token>" Authorization format.
func BearerValue(token string) string {
	return "Bearer " + token
}

package domain

// TokenResponse is what the token-issuing endpoints return: a signed
// bearer token plus enough metadata for the client to schedule a refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds until expiry
	Role        string `json:"role,omitempty"`
}

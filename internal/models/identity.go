package models

// Identity is the authenticated principal supplied by the identity provider.
type Identity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	PhotoURL      string `json:"photoURL,omitempty"`
}

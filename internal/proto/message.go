// Package proto defines the JSON shapes exchanged with clients.
package proto

// Event is the server-to-client envelope. Type is one of the kind labels
// below; clients send raw text frames and have no inbound envelope.
type Event struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

const (
	TypeMessage      = "message"
	TypeNotification = "notification"
	TypeError        = "error"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeSystem       = "system"
)

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Profile is the public view of a user.
type Profile struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Disabled    bool   `json:"disabled"`
}

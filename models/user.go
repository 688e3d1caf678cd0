package models

// User is a directory entry for a chat participant.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PublicKeyPEM string `json:"public_key_pem"`
	LastSeen     int64  `json:"last_seen"`
}

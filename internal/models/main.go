// Package models defines the core data structures for users, sessions and
// property listings as they travel between the backend and the client.
package models

// User represents an account returned by the backend auth endpoints.
// It is an immutable snapshot and is replaced wholesale on every refresh.
type User struct {
	// ID is the backend identifier of the user.
	ID string `json:"_id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// Email is the contact address given at registration.
	Email string `json:"email"`
	// CreatedAt is the backend creation timestamp, kept as sent.
	CreatedAt string `json:"createdAt"`
}

// AuthResponse is the payload of the login and register endpoints.
type AuthResponse struct {
	// Token is the bearer credential for subsequent requests.
	Token string `json:"token"`
	// User is the authenticated account.
	User User `json:"user"`
}

// Credentials carries a username/password pair for login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration carries the fields required to create an account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a read-only view of the client session.
type Session struct {
	// Token is the bearer credential, empty when anonymous.
	Token string `json:"token,omitempty"`
	// User is the last known account, nil when unknown.
	User *User `json:"user,omitempty"`
	// IsLoggedIn reports whether the session is authenticated.
	IsLoggedIn bool `json:"isLoggedIn"`
}

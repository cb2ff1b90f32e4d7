// Package auth handles authentication and ownership resolution: user
// registration, credential verification, session token issuance and
// revocation, and the HTTP middleware that turns a bearer token back into a
// user for the duration of one request.
package auth

import "time"

// User represents a user account as stored in the database and used within
// the application's business logic.
//
// The json tags define the only sanctioned external representation of a user:
// the password hash and avatar bytes are excluded with `json:"-"`, and issued
// tokens live in a separate table and are never embedded in the model. A user
// record leaves the system boundary exclusively through this serialization.
type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Avatar         []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Data Transfer Objects for the auth endpoints: request payloads for
// registration and login, and the token-bearing response both return.
package auth

// RegisterRequest represents the registration request payload.
// Age is optional and defaults to 0.
type RegisterRequest struct {
	Name     string `json:"name" example:"Ann"`
	Age      int    `json:"age,omitempty" example:"30"`
	Email    string `json:"email" example:"ann@example.com"`
	Password string `json:"password" example:"longpassw0rd"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" example:"ann@example.com"`
	Password string `json:"password" example:"longpassw0rd"`
}

// AuthResponse is returned on successful registration or login. It carries
// the serialized user together with a freshly issued session token.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

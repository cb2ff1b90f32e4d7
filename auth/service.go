// Business logic for registration, login, and the session token lifecycle.
// Tokens are HS256 JWTs carrying the user id, signed with the configured
// process-wide secret, and recorded in the credential store so that each one
// can be revoked individually.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/config"
)

// bearerPrefix is the recognized scheme in the Authorization header.
const bearerPrefix = "bearer"

// validate is the shared validator instance used for field-level checks.
var validate = validator.New()

// AuthService provides authentication-related services: user registration,
// credential verification, and token issuance, verification, and revocation.
type AuthService struct {
	store      UserStore
	authConfig config.AuthConfig
}

// NewAuthService creates a new AuthService with its dependencies injected.
func NewAuthService(store UserStore, authConfig config.AuthConfig) *AuthService {
	return &AuthService{
		store:      store,
		authConfig: authConfig,
	}
}

// TokenClaims defines the payload of a session token. Only the user id is
// embedded; there is no expiry claim. Tokens stay valid until revoked.
type TokenClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// ValidatePassword enforces the password rules: minimum length 8, and the
// secret must not trivially contain the word "password" in any case.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperror.NewValidationError("password must be at least 8 characters", nil)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return apperror.NewValidationError(`password can't contain "password"`, nil)
	}
	return nil
}

// ValidateEmail checks that the value is a well-formed email address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperror.NewValidationError("enter a valid email", nil)
	}
	return nil
}

// HashPassword produces a salted one-way bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.NewInternalError("failed to hash password", err)
	}
	return string(hashed), nil
}

// Register validates the registration payload, creates the user with a hashed
// password and lowercased email, and issues a first session token. A
// duplicate email surfaces as a ConflictError from the store.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.NewValidationError("name is required", nil)
	}
	if req.Age < 0 {
		return nil, apperror.NewValidationError("enter a valid age", nil)
	}
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:           strings.TrimSpace(req.Name),
		Age:            req.Age,
		Email:          strings.ToLower(req.Email),
		HashedPassword: hashed,
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: created, Token: token}, nil
}

// Login verifies the credentials and issues a new session token. The lookup
// is by lowercased email; the password is compared against the stored hash,
// never in plaintext.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewAuthError("no such user", nil)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuthError("invalid password", nil)
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, Token: token}, nil
}

// IssueToken signs a token embedding the user id, appends it to the user's
// stored token list, and returns the token string.
func (s *AuthService) IssueToken(ctx context.Context, userID int) (string, error) {
	claims := &TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Subject:  fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return "", apperror.NewInternalError("failed to sign token", err)
	}

	if err := s.store.AddToken(ctx, userID, tokenString); err != nil {
		return "", err
	}
	return tokenString, nil
}

// VerifyToken checks the token's signature and returns the embedded user id.
// It does not consult the store; revocation is enforced by Authenticate.
func (s *AuthService) VerifyToken(tokenString string) (int, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	})
	if err != nil {
		return 0, apperror.NewAuthError("invalid token", err)
	}
	if !token.Valid {
		return 0, apperror.NewAuthError("invalid token", nil)
	}
	if claims.UserID == 0 {
		return 0, apperror.NewAuthError("invalid token: user_id claim is missing", nil)
	}
	return claims.UserID, nil
}

// Authenticate resolves a raw Authorization header into the (user, token)
// pair for the duration of one request. It strips the bearer prefix, verifies
// the signature, loads the user, and confirms the exact token string is still
// present in that user's active token list.
func (s *AuthService) Authenticate(ctx context.Context, authorizationHeader string) (*User, string, error) {
	if authorizationHeader == "" {
		return nil, "", apperror.NewAuthError("Authorization header is missing", nil)
	}

	parts := strings.SplitN(authorizationHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != bearerPrefix {
		return nil, "", apperror.NewAuthError("Authorization header format must be Bearer {token}", nil)
	}
	tokenString := parts[1]

	userID, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, "", apperror.NewAuthError("invalid token", nil)
		}
		return nil, "", err
	}

	active, err := s.store.HasToken(ctx, userID, tokenString)
	if err != nil {
		return nil, "", err
	}
	if !active {
		return nil, "", apperror.NewAuthError("token has been revoked", nil)
	}

	return user, tokenString, nil
}

// Logout revokes the single presented token.
func (s *AuthService) Logout(ctx context.Context, userID int, token string) error {
	return s.store.RemoveToken(ctx, userID, token)
}

// LogoutAll revokes every token issued to the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int) error {
	return s.store.RemoveAllTokens(ctx, userID)
}

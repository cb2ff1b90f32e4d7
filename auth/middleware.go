// HTTP middleware forming the auth gate: every request passing through it
// must present a valid, unrevoked bearer token, or it is rejected with 401
// before reaching the route handler.
package auth

import (
	"net/http"
)

// Middleware returns the authentication middleware. It extracts the bearer
// token from the Authorization header, resolves it to a user through the
// AuthService (signature check plus active-token lookup), and injects the
// (user, token) pair into the request context.
func Middleware(service *AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, token, err := service.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := NewContextWithAuth(r.Context(), user, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

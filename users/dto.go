// Data Transfer Objects for the user profile endpoints.
package users

// UpdateProfileRequest is the typed partial-update structure for a user
// profile. The updatable field set is exactly {name, age, email, password};
// handlers decode with DisallowUnknownFields so any other key is rejected.
// Nil pointers mean "leave unchanged".
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" example:"Ann"`
	Age      *int    `json:"age,omitempty" example:"31"`
	Email    *string `json:"email,omitempty" example:"ann@example.com"`
	Password *string `json:"password,omitempty" example:"longpassw0rd2"`
}

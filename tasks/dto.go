// Data Transfer Objects for the task endpoints.
package tasks

// CreateTaskRequest represents the payload for creating a task.
type CreateTaskRequest struct {
	Description string `json:"description" example:"buy milk"`
	Completed   bool   `json:"completed,omitempty" example:"false"`
}

// UpdateTaskRequest is the typed partial-update structure for a task. The
// updatable field set is exactly {description, completed}; handlers decode
// with DisallowUnknownFields so any other key is rejected before the service
// runs. Nil pointers mean "leave unchanged".
type UpdateTaskRequest struct {
	Description *string `json:"description,omitempty" example:"buy milk"`
	Completed   *bool   `json:"completed,omitempty" example:"true"`
}

// ListQuery carries the optional filter, sort, and pagination parameters of a
// task list request, already parsed from the query string.
type ListQuery struct {
	// Completed filters by completion state when non-nil.
	Completed *bool
	// SortField names the column to order by; empty means creation order.
	SortField string
	// SortDesc selects descending order; ascending is the default.
	SortDesc bool
	// Limit bounds the page size when non-nil; nil means unbounded.
	Limit *int
	// Skip is the result offset; zero means no offset.
	Skip int
}

// Business logic for the owner-scoped task resource. The service validates
// input and enforces the updatable-field and sort-field allow-lists; the
// owner scoping itself is carried by every store query.
package tasks

import (
	"context"
	"strings"

	"github.com/user/taskman-go/apperror"
)

// sortFields maps accepted sortBy field names to their column names. Sort
// identifiers cannot be bound as query parameters, so anything outside this
// map is rejected before SQL is built.
var sortFields = map[string]string{
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"created_at":  "created_at",
	"updatedAt":   "updated_at",
	"updated_at":  "updated_at",
}

// TaskService provides owner-scoped CRUD over task records.
type TaskService struct {
	store TaskStore
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// Create persists a new task stamped with the owner id of the requester.
func (s *TaskService) Create(ctx context.Context, ownerID int, req CreateTaskRequest) (*Task, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperror.NewValidationError("description is required", nil)
	}

	task := &Task{
		Description: description,
		Completed:   req.Completed,
		Owner:       ownerID,
	}
	return s.store.Create(ctx, task)
}

// List returns the owner's tasks with the optional completed filter, sort,
// and pagination applied. The sort field must come from the allow-list.
func (s *TaskService) List(ctx context.Context, ownerID int, q ListQuery) ([]Task, error) {
	if q.SortField != "" {
		column, ok := sortFields[q.SortField]
		if !ok {
			return nil, apperror.NewValidationError("invalid sort field: "+q.SortField, nil)
		}
		q.SortField = column
	}
	if q.Skip < 0 {
		return nil, apperror.NewValidationError("skip must not be negative", nil)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return nil, apperror.NewValidationError("limit must not be negative", nil)
	}
	return s.store.List(ctx, ownerID, q)
}

// Get returns the task with the given id under the given owner, or a
// NotFoundError that does not reveal whether the id exists for someone else.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID int) (*Task, error) {
	return s.store.Get(ctx, ownerID, taskID)
}

// Update applies the allow-listed partial fields to the owner's task and
// re-validates before persisting. A request with no fields set returns the
// task unchanged.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID int, req UpdateTaskRequest) (*Task, error) {
	task, err := s.store.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, apperror.NewValidationError("description is required", nil)
		}
		task.Description = description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Description == nil && req.Completed == nil {
		return task, nil
	}

	return s.store.Update(ctx, task)
}

// Delete removes the owner's task and returns the deleted record.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int) (*Task, error) {
	return s.store.Delete(ctx, ownerID, taskID)
}

// Package tasks implements the owner-scoped task resource: every query issued
// by this package is filtered by the owner id resolved by the auth gate, so a
// user can only ever see or mutate their own tasks. A task owned by someone
// else is indistinguishable from one that does not exist.
package tasks

import "time"

// Task represents a task record. Owner references exactly one user and is
// stamped from the authenticated requester at creation; a task is never
// created without an owner.
type Task struct {
	ID          int       `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       int       `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

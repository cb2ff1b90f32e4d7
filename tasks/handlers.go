// HTTP handlers for the task endpoints. Every route here sits behind the auth
// middleware; the owner id is read from the request context, never from the
// request payload.
package tasks

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/auth"
)

// TaskHandlers provides HTTP handlers for task management.
type TaskHandlers struct {
	service *TaskService
}

// NewTaskHandlers creates new TaskHandlers.
func NewTaskHandlers(service *TaskService) *TaskHandlers {
	return &TaskHandlers{service: service}
}

// RegisterRoutes registers the task API routes on the given router. The
// router is expected to already carry the auth middleware; this includes the
// get-by-id route, which is guarded uniformly with its siblings.
func (h *TaskHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateTask())
	r.Get("/", h.HandleListTasks())
	r.Get("/{id}", h.HandleGetTask())
	r.Patch("/{id}", h.HandleUpdateTask())
	r.Delete("/{id}", h.HandleDeleteTask())
}

// ownerFromRequest resolves the authenticated user's id from the request
// context. A missing entry means the middleware did not run.
func ownerFromRequest(r *http.Request) (int, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return 0, apperror.NewAuthError("no authentication context", nil)
	}
	return user.ID, nil
}

// taskIDFromRequest parses the {id} URL parameter.
func taskIDFromRequest(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, apperror.NewValidationError("invalid task id", nil)
	}
	return id, nil
}

// HandleCreateTask godoc
// @Summary Create a task
// @Description Creates a task owned by the current user.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskBody body tasks.CreateTaskRequest true "Task fields"
// @Success 201 {object} tasks.Task "Task created"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /tasks [post]
func (h *TaskHandlers) HandleCreateTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		task, err := h.service.Create(r.Context(), ownerID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusCreated, task)
	}
}

// parseListQuery turns the raw query string into a ListQuery.
//
// Boundary behavior, kept caller-visible on purpose: a non-numeric limit or
// skip value behaves as if the parameter were absent, yielding an unbounded
// or zero-offset result rather than an error. The completed parameter matches
// the string "true" exactly; any other non-empty value filters for
// uncompleted tasks.
func parseListQuery(r *http.Request) ListQuery {
	var q ListQuery

	if v := r.URL.Query().Get("completed"); v != "" {
		completed := v == "true"
		q.Completed = &completed
	}

	if v := r.URL.Query().Get("sortBy"); v != "" {
		parts := strings.SplitN(v, ":", 2)
		q.SortField = parts[0]
		q.SortDesc = len(parts) == 2 && parts[1] == "desc"
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			q.Limit = &limit
		}
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		if skip, err := strconv.Atoi(v); err == nil {
			q.Skip = skip
		}
	}

	return q
}

// HandleListTasks godoc
// @Summary List tasks
// @Description Lists the current user's tasks with optional filter, sort, and pagination.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param completed query string false "Filter by completion, 'true' or 'false'"
// @Param sortBy query string false "Sort specification, 'field:asc' or 'field:desc'"
// @Param limit query int false "Maximum number of results"
// @Param skip query int false "Number of results to skip"
// @Success 200 {array} tasks.Task "Tasks"
// @Failure 400 {object} apperror.ErrorResponse "Invalid sort field"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /tasks [get]
func (h *TaskHandlers) HandleListTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		result, err := h.service.List(r.Context(), ownerID, parseListQuery(r))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleGetTask godoc
// @Summary Get a task
// @Description Fetches one of the current user's tasks by id.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} tasks.Task "Task"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Failure 404 {object} apperror.ErrorResponse "Task not found"
// @Router /tasks/{id} [get]
func (h *TaskHandlers) HandleGetTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		taskID, err := taskIDFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		task, err := h.service.Get(r.Context(), ownerID, taskID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, task)
	}
}

// HandleUpdateTask godoc
// @Summary Update a task
// @Description Applies a partial update to one of the current user's tasks. Only description and completed may be updated.
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param taskBody body tasks.UpdateTaskRequest true "Fields to update"
// @Success 200 {object} tasks.Task "Updated task"
// @Failure 400 {object} apperror.ErrorResponse "Invalid updates"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Failure 404 {object} apperror.ErrorResponse "Task not found"
// @Router /tasks/{id} [patch]
func (h *TaskHandlers) HandleUpdateTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		taskID, err := taskIDFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		// DisallowUnknownFields enforces the updatable-field allow-list at the
		// decoder: any key outside {description, completed} fails here before
		// anything is mutated.
		var req UpdateTaskRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid updates", err))
			return
		}
		defer r.Body.Close()

		task, err := h.service.Update(r.Context(), ownerID, taskID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, task)
	}
}

// HandleDeleteTask godoc
// @Summary Delete a task
// @Description Deletes one of the current user's tasks and returns the deleted record.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} tasks.Task "Deleted task"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Failure 404 {object} apperror.ErrorResponse "Task not found"
// @Router /tasks/{id} [delete]
func (h *TaskHandlers) HandleDeleteTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		taskID, err := taskIDFromRequest(r)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		task, err := h.service.Delete(r.Context(), ownerID, taskID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, task)
	}
}

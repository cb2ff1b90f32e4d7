package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/auth"
	"github.com/user/taskman-go/config"
)

// fakeUserStore is the minimal auth.UserStore needed to drive the auth
// middleware in these router tests.
type fakeUserStore struct {
	users  map[int]*auth.User
	tokens map[int][]string
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[int]*auth.User),
		tokens: make(map[int][]string),
		nextID: 1,
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, apperror.NewConflictError("email already exists", nil)
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NewNotFoundError("user not found", nil)
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) DeleteUserCascade(_ context.Context, id int) error {
	delete(f.users, id)
	delete(f.tokens, id)
	return nil
}

func (f *fakeUserStore) AddToken(_ context.Context, userID int, token string) error {
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeUserStore) RemoveToken(_ context.Context, userID int, token string) error {
	kept := f.tokens[userID][:0]
	for _, t := range f.tokens[userID] {
		if t != token {
			kept = append(kept, t)
		}
	}
	f.tokens[userID] = kept
	return nil
}

func (f *fakeUserStore) RemoveAllTokens(_ context.Context, userID int) error {
	f.tokens[userID] = nil
	return nil
}

func (f *fakeUserStore) HasToken(_ context.Context, userID int, token string) (bool, error) {
	for _, t := range f.tokens[userID] {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) SetAvatar(_ context.Context, userID int, data []byte) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NewNotFoundError("user not found", nil)
	}
	u.Avatar = data
	return nil
}

func (f *fakeUserStore) ClearAvatar(_ context.Context, userID int) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NewNotFoundError("user not found", nil)
	}
	u.Avatar = nil
	return nil
}

func (f *fakeUserStore) GetAvatar(_ context.Context, userID int) ([]byte, error) {
	u, ok := f.users[userID]
	if !ok || len(u.Avatar) == 0 {
		return nil, apperror.NewNotFoundError("avatar not found", nil)
	}
	return u.Avatar, nil
}

// newTestRouter assembles the user and task routes the same way main does,
// on top of in-memory stores.
func newTestRouter() http.Handler {
	userStore := newFakeUserStore()
	taskStore := newMemTaskStore()

	authService := auth.NewAuthService(userStore, config.AuthConfig{JWTSecret: "router-test-secret"})
	authHandlers := auth.NewHandlers(authService)
	taskHandlers := NewTaskHandlers(NewTaskService(taskStore))

	r := chi.NewRouter()
	r.Post("/users", authHandlers.HandleRegister())
	r.Post("/users/login", authHandlers.HandleLogin())
	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth.Middleware(authService))
		taskHandlers.RegisterRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

func registerAndLogin(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Tester","age":25,"email":%q,"password":"longpassw0rd"}`, email)
	rec, _ := doJSON(t, router, http.MethodPost, "/users", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	login := fmt.Sprintf(`{"email":%q,"password":"longpassw0rd"}`, email)
	rec, raw := doJSON(t, router, http.MethodPost, "/users/login", "", login)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp auth.AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestTaskLifecycle(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "ann@x.com")

	// Create.
	rec, raw := doJSON(t, router, http.MethodPost, "/tasks", token, `{"description":"write report"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created Task
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode created task: %v", err)
	}
	if created.Completed {
		t.Error("new task should not be completed")
	}

	taskPath := fmt.Sprintf("/tasks/%d", created.ID)

	// The open task shows up under completed=false and not under completed=true.
	rec, raw = doJSON(t, router, http.MethodGet, "/tasks?completed=false", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var listed []Task
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("list(completed=false) = %+v, want the created task", listed)
	}

	rec, raw = doJSON(t, router, http.MethodGet, "/tasks?completed=true", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("list(completed=true) = %+v, want empty", listed)
	}

	// Mark it completed and watch it switch sides.
	rec, raw = doJSON(t, router, http.MethodPatch, taskPath, token, `{"completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated Task
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("decode updated task: %v", err)
	}
	if !updated.Completed || updated.Description != "write report" {
		t.Errorf("patch result = %+v, want completed with description intact", updated)
	}

	rec, raw = doJSON(t, router, http.MethodGet, "/tasks?completed=true", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("list(completed=true) after patch = %+v, want one task", listed)
	}

	// Delete returns the record; a follow-up get is 404.
	rec, raw = doJSON(t, router, http.MethodDelete, taskPath, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	var deleted Task
	if err := json.Unmarshal(raw, &deleted); err != nil {
		t.Fatalf("decode deleted task: %v", err)
	}
	if deleted.ID != created.ID {
		t.Errorf("delete returned id %d, want %d", deleted.ID, created.ID)
	}

	rec, _ = doJSON(t, router, http.MethodGet, taskPath, token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTaskRoutes_RequireAuth(t *testing.T) {
	router := newTestRouter()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/tasks/1"},
		{http.MethodPatch, "/tasks/1"},
		{http.MethodDelete, "/tasks/1"},
	}

	for _, p := range paths {
		rec, _ := doJSON(t, router, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want %d", p.method, p.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestTaskRoutes_CrossUserIsolation(t *testing.T) {
	router := newTestRouter()
	annToken := registerAndLogin(t, router, "ann@x.com")
	bobToken := registerAndLogin(t, router, "bob@x.com")

	rec, raw := doJSON(t, router, http.MethodPost, "/tasks", annToken, `{"description":"ann's task"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		t.Fatalf("decode created task: %v", err)
	}
	taskPath := fmt.Sprintf("/tasks/%d", task.ID)

	// Bob cannot see, change, or delete Ann's task.
	for _, tc := range []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPatch, `{"completed":true}`},
		{http.MethodDelete, ""},
	} {
		rec, _ := doJSON(t, router, tc.method, taskPath, bobToken, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s as other user: status = %d, want %d", tc.method, taskPath, rec.Code, http.StatusNotFound)
		}
	}

	// Bob's list is empty.
	rec, raw = doJSON(t, router, http.MethodGet, "/tasks", bobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []Task
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("other user's list = %+v, want empty", listed)
	}

	// Ann still owns her task.
	rec, _ = doJSON(t, router, http.MethodGet, taskPath, annToken, "")
	if rec.Code != http.StatusOK {
		t.Errorf("owner get status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleUpdateTask_UnknownFieldRejected(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "ann@x.com")

	rec, raw := doJSON(t, router, http.MethodPost, "/tasks", token, `{"description":"task"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		t.Fatalf("decode created task: %v", err)
	}

	rec, _ = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), token, `{"owner":99}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("patch with unknown field status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// The rejected update must not have touched the task.
	rec, raw = doJSON(t, router, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got Task
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if got.Owner != task.Owner {
		t.Errorf("owner = %d, mutated by rejected update", got.Owner)
	}
}

func TestHandleListTasks_QueryBoundaries(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "ann@x.com")

	for i := 0; i < 3; i++ {
		rec, _ := doJSON(t, router, http.MethodPost, "/tasks", token, fmt.Sprintf(`{"description":"task %d"}`, i))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}

	t.Run("non-numeric limit behaves as absent", func(t *testing.T) {
		rec, raw := doJSON(t, router, http.MethodGet, "/tasks?limit=abc", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var listed []Task
		if err := json.Unmarshal(raw, &listed); err != nil {
			t.Fatalf("decode task list: %v", err)
		}
		if len(listed) != 3 {
			t.Errorf("list(limit=abc) returned %d tasks, want all 3", len(listed))
		}
	})

	t.Run("non-numeric skip behaves as absent", func(t *testing.T) {
		rec, raw := doJSON(t, router, http.MethodGet, "/tasks?skip=abc", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var listed []Task
		if err := json.Unmarshal(raw, &listed); err != nil {
			t.Fatalf("decode task list: %v", err)
		}
		if len(listed) != 3 {
			t.Errorf("list(skip=abc) returned %d tasks, want all 3", len(listed))
		}
	})

	t.Run("invalid sort field is rejected", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/tasks?sortBy=owner:desc", token, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("list(sortBy=owner) status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("sortBy without direction is ascending", func(t *testing.T) {
		rec, raw := doJSON(t, router, http.MethodGet, "/tasks?sortBy=description", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var listed []Task
		if err := json.Unmarshal(raw, &listed); err != nil {
			t.Fatalf("decode task list: %v", err)
		}
		for i := 1; i < len(listed); i++ {
			if listed[i-1].Description > listed[i].Description {
				t.Fatalf("list is not ascending by description: %+v", listed)
			}
		}
	})

	t.Run("invalid task id", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/tasks/abc", token, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("get /tasks/abc status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/api/middleware"
	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

var manager = domain.Identity{ID: "m1", Role: domain.RoleManager}

func newContext(method, target, body string, who *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if who != nil {
		c.Set(middleware.IdentityKey, *who)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["ok"] != true {
		t.Fatalf("expected ok envelope, got %v", resp)
	}
	return resp
}

type stubAuthService struct {
	loginFn func(ctx context.Context, email, password string) (string, *domain.User, error)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

type stubUserService struct {
	ports.UserService
	getFn    func(actor domain.Identity, id string) (*domain.User, error)
	createFn func(actor domain.Identity, in sanitize.Fields) (*domain.User, error)
	listFn   func(actor domain.Identity, f ports.UserFilter) ([]domain.User, error)
}

func (s *stubUserService) Get(_ context.Context, actor domain.Identity, id string) (*domain.User, error) {
	return s.getFn(actor, id)
}

func (s *stubUserService) Create(_ context.Context, actor domain.Identity, in sanitize.Fields) (*domain.User, error) {
	return s.createFn(actor, in)
}

func (s *stubUserService) List(_ context.Context, actor domain.Identity, f ports.UserFilter) ([]domain.User, error) {
	return s.listFn(actor, f)
}

type stubTaskService struct {
	ports.TaskService
	listFn   func(actor domain.Identity, q ports.TaskQuery) ([]*domain.Task, error)
	updateFn func(actor domain.Identity, id string, in sanitize.Fields) (*domain.Task, error)
	deleteFn func(actor domain.Identity, id string) error
}

func (s *stubTaskService) List(_ context.Context, actor domain.Identity, q ports.TaskQuery) ([]*domain.Task, error) {
	return s.listFn(actor, q)
}

func (s *stubTaskService) Update(_ context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.Task, error) {
	return s.updateFn(actor, id, in)
}

func (s *stubTaskService) Delete(_ context.Context, actor domain.Identity, id string) error {
	return s.deleteFn(actor, id)
}

type stubActivityService struct {
	listFn func(actor domain.Identity, f ports.ActivityFilter) ([]*domain.Activity, error)
}

func (s *stubActivityService) List(_ context.Context, actor domain.Identity, f ports.ActivityFilter) ([]*domain.Activity, error) {
	return s.listFn(actor, f)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.User{ID: "u1", Name: "Alice", Role: domain.RoleAdmin, PasswordHash: "$2a$"}, nil
		},
	}
	h := NewAuthHandler(stub, nil)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	data := decode(t, rec)["data"].(map[string]any)
	if data["token"] != "token123" {
		t.Fatalf("expected token, got %v", data["token"])
	}
	user := data["user"].(map[string]any)
	if user["id"] != "u1" || user["role"] != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatal("password hash leaked into the response")
	}
}

func TestAuthHandler_Login_MissingPassword(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	h := NewAuthHandler(stub, nil)

	c, _ := newContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com"}`, nil)
	err := h.Login(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, nil)

	c, _ := newContext(http.MethodPost, "/auth/login", "{", nil)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidCredentialsPassThrough(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, nil)

	c, _ := newContext(http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"bad"}`, nil)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	users := &stubUserService{getFn: func(actor domain.Identity, id string) (*domain.User, error) {
		if id != actor.ID {
			t.Fatalf("Me must look up the caller, got %s", id)
		}
		return &domain.User{ID: id, Role: actor.Role}, nil
	}}
	h := NewAuthHandler(nil, users)

	c, rec := newContext(http.MethodGet, "/auth/me", "", &manager)
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if data := decode(t, rec)["data"].(map[string]any); data["id"] != "m1" {
		t.Fatalf("unexpected payload: %v", data)
	}

	anon, _ := newContext(http.MethodGet, "/auth/me", "", nil)
	if err := h.Me(anon); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("anonymous caller: expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserHandler_Create_PassesRawFieldsAndCaller(t *testing.T) {
	users := &stubUserService{createFn: func(actor domain.Identity, in sanitize.Fields) (*domain.User, error) {
		if actor != manager {
			t.Fatalf("unexpected actor %+v", actor)
		}
		if in["role"] != "admin" || in["name"] != " Bob " {
			t.Fatalf("fields must arrive unsanitized: %v", in)
		}
		return nil, &domain.ForbiddenError{Reason: domain.DenyProtectedTarget}
	}}
	h := NewUserHandler(users)

	c, _ := newContext(http.MethodPost, "/v1/users", `{"name":" Bob ","role":"admin"}`, &manager)
	var fe *domain.ForbiddenError
	if err := h.Create(c); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUserHandler_Create_EmptyBodyIsEmptyFields(t *testing.T) {
	users := &stubUserService{createFn: func(_ domain.Identity, in sanitize.Fields) (*domain.User, error) {
		if in == nil || len(in) != 0 {
			t.Fatalf("expected empty fields, got %v", in)
		}
		return nil, domain.Invalid("name", "is required")
	}}
	h := NewUserHandler(users)

	c, _ := newContext(http.MethodPost, "/v1/users", "", &manager)
	if err := h.Create(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUserHandler_Create_MalformedBody(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	c, _ := newContext(http.MethodPost, "/v1/users", `{"name": "Bob",}`, &manager)
	err := h.Create(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Error() != "invalid payload" {
		t.Fatalf("expected field-neutral invalid payload, got %v", err)
	}
}

func TestUserHandler_List_RoleFilter(t *testing.T) {
	users := &stubUserService{listFn: func(_ domain.Identity, f ports.UserFilter) ([]domain.User, error) {
		if f.Role != domain.RoleEmployee || f.Limit != 5 {
			t.Fatalf("unexpected filter %+v", f)
		}
		return []domain.User{{ID: "e1"}}, nil
	}}
	h := NewUserHandler(users)

	c, rec := newContext(http.MethodGet, "/v1/users?role=employee&limit=5", "", &manager)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if data := decode(t, rec)["data"].([]any); len(data) != 1 {
		t.Fatalf("unexpected payload: %v", data)
	}

	for _, q := range []string{"role=anonymous", "limit=-1", "limit=ten"} {
		c, _ := newContext(http.MethodGet, "/v1/users?"+q, "", &manager)
		if err := h.List(c); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected invalid input, got %v", q, err)
		}
	}
}

func TestTaskHandler_List_ForwardsQuery(t *testing.T) {
	tasks := &stubTaskService{listFn: func(_ domain.Identity, q ports.TaskQuery) ([]*domain.Task, error) {
		want := ports.TaskQuery{ProjectID: "p1", Status: "in_progress", Priority: "high"}
		if q != want {
			t.Fatalf("unexpected query %+v", q)
		}
		return []*domain.Task{}, nil
	}}
	h := NewTaskHandler(tasks)

	c, rec := newContext(http.MethodGet, "/v1/tasks?project_id=p1&status=in_progress&priority=high", "", &manager)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if data, ok := decode(t, rec)["data"].([]any); !ok || len(data) != 0 {
		t.Fatalf("expected empty list, got %v", data)
	}
}

func TestTaskHandler_UpdateAndDeleteUsePathID(t *testing.T) {
	tasks := &stubTaskService{
		updateFn: func(_ domain.Identity, id string, in sanitize.Fields) (*domain.Task, error) {
			if in.Has("id") {
				t.Fatal("path params must not leak into the body fields")
			}
			return &domain.Task{ID: id, Status: domain.StatusDone}, nil
		},
		deleteFn: func(_ domain.Identity, id string) error {
			if id != "t9" {
				t.Fatalf("unexpected id %s", id)
			}
			return nil
		},
	}
	h := NewTaskHandler(tasks)

	c, rec := newContext(http.MethodPut, "/v1/tasks/t9", `{"status":"done"}`, &manager)
	c.SetParamNames("id")
	c.SetParamValues("t9")
	if err := h.Update(c); err != nil {
		t.Fatalf("update error: %v", err)
	}
	if data := decode(t, rec)["data"].(map[string]any); data["id"] != "t9" || data["status"] != "done" {
		t.Fatalf("unexpected payload %v", data)
	}

	c, rec = newContext(http.MethodDelete, "/v1/tasks/t9", "", &manager)
	c.SetParamNames("id")
	c.SetParamValues("t9")
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if data := decode(t, rec)["data"].(map[string]any); data["id"] != "t9" {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestActivityHandler_List(t *testing.T) {
	svc := &stubActivityService{listFn: func(_ domain.Identity, f ports.ActivityFilter) ([]*domain.Activity, error) {
		if f.Entity != domain.EntityTask || f.EntityID != "t1" || f.Limit != 20 {
			t.Fatalf("unexpected filter %+v", f)
		}
		return []*domain.Activity{{ID: "a1"}}, nil
	}}
	h := NewActivityHandler(svc)

	c, rec := newContext(http.MethodGet, "/v1/activity?entity=task&entity_id=t1&limit=20", "", &manager)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if data := decode(t, rec)["data"].([]any); len(data) != 1 {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := NewHealthHandler(map[string]Probe{"mongodb": ok, "redis": ok})
	c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
	if err := h.Readiness(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	h = NewHealthHandler(map[string]Probe{"mongodb": ok, "redis": down})
	c, rec = newContext(http.MethodGet, "/health/ready", "", nil)
	if err := h.Readiness(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Dependencies["redis"].Status != "unhealthy" || body.Dependencies["mongodb"].Status != "ok" {
		t.Fatalf("unexpected body %+v", body)
	}
}

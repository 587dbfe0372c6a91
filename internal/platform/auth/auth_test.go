package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(handler)(c)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, "u1", "asha", RoleCoordinator, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	called := false
	_, err = doRequest(t, Middleware(testSecret), "Bearer "+token, func(c echo.Context) error {
		called = true
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "u1" {
			t.Errorf("UserIDFromContext = %s, want u1", got)
		}
		if got := UsernameFromContext(ctx); got != "asha" {
			t.Errorf("UsernameFromContext = %s, want asha", got)
		}
		if got := RoleFromContext(ctx); got != RoleCoordinator {
			t.Errorf("RoleFromContext = %s, want coordinator", got)
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	_, err := doRequest(t, Middleware(testSecret), "", func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	_, err := doRequest(t, Middleware(testSecret), "Bearer not-a-token", func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	token, err := IssueToken(testSecret, "u1", "asha", RoleAdmin, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	_, err = doRequest(t, Middleware(testSecret), "Bearer "+token, func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestRequireRoleAdminBypass(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/visits/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	chain := DevMiddleware()(RequireRole(RoleCoordinator)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}))
	if err := chain(c); err != nil {
		t.Fatalf("admin should pass any role check, got %v", err)
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	token, err := IssueToken(testSecret, "u2", "ravi", RoleInvestigator, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	chainErr := func() error {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/finance/funds", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		chain := Middleware(testSecret)(RequireRole(RoleCoordinator)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}))
		return chain(c)
	}()
	assertHTTPStatus(t, chainErr, http.StatusForbidden)
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != want {
		t.Errorf("status = %d, want %d", httpErr.Code, want)
	}
}

package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"outdial-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, role string, mw gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
			c.Next()
		})
	}
	r.Use(mw)
	r.GET("/x", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	w := doRequest(t, RoleOperator, RequireAnyRole(RoleOperator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	w := doRequest(t, RoleAdmin, RequireAnyRole(RoleOperator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}

func TestRequireAnyRole_RejectsOtherRole(t *testing.T) {
	w := doRequest(t, RoleViewer, RequireAnyRole(RoleOperator))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_RejectsMissingIdentity(t *testing.T) {
	w := doRequest(t, "", RequireAnyRole(RoleOperator))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/affiliate-next/internal/authz"
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzHandler(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_authz_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	h := New(&provider.Container{DB: db, AuthzService: svc})

	r := gin.New()
	r.GET("/admin/authz/roles", h.ListAuthzRoles)
	r.GET("/admin/authz/operators/:operator", h.GetOperatorAuthz)
	r.PUT("/admin/authz/operators/:operator/roles", h.SetOperatorRoles)
	return r
}

func TestAdminAuthzRoles(t *testing.T) {
	r := setupAuthzHandler(t)

	resp := do(t, r, http.MethodGet, "/admin/authz/roles", "")
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("list roles want ok got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var roles []AuthzRole
	if err := json.Unmarshal(resp.Data, &roles); err != nil {
		t.Fatalf("unmarshal roles failed: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("builtin roles want 3 got %d", len(roles))
	}
}

func TestAdminSetOperatorRoles(t *testing.T) {
	r := setupAuthzHandler(t)

	resp := do(t, r, http.MethodPut, "/admin/authz/operators/erin/roles", `{"roles":["affiliate_manager"]}`)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("set roles want ok got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var view OperatorAuthz
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("unmarshal operator authz failed: %v", err)
	}
	if view.Operator != "erin" || len(view.Roles) != 1 || view.Roles[0] != "role:affiliate_manager" {
		t.Fatalf("unexpected operator view: %+v", view)
	}
	if len(view.Policies) == 0 {
		t.Fatalf("operator should inherit policies")
	}

	resp = do(t, r, http.MethodPut, "/admin/authz/operators/erin/roles", `{"roles":["ghost"]}`)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("unknown role want 400 got %d", resp.StatusCode)
	}

	resp = do(t, r, http.MethodGet, "/admin/authz/operators/erin", "")
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("unmarshal operator authz failed: %v", err)
	}
	if len(view.Roles) != 1 {
		t.Fatalf("rejected update should keep roles, got %+v", view.Roles)
	}
}

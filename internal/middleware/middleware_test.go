package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type verifierStub struct {
	claims *models.TenantClaims
	err    error
	seen   string
}

func (v *verifierStub) Verify(token string) (*models.TenantClaims, error) {
	v.seen = token
	return v.claims, v.err
}

func newProtectedRouter(verifier tokenVerifier, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(verifier)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, SchoolID(c))
	})
	router.GET("/", handlers...)
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope response.Envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error == nil {
		t.Fatalf("expected error envelope, got %s", recorder.Body.String())
	}
	return envelope.Error.Code
}

func TestJWTBindsSchool(t *testing.T) {
	verifier := &verifierStub{claims: &models.TenantClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "school-1"}}
	recorder := serve(newProtectedRouter(verifier), "Bearer abc.def")

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if recorder.Body.String() != "school-1" {
		t.Fatalf("unexpected school: %s", recorder.Body.String())
	}
	if verifier.seen != "abc.def" {
		t.Fatalf("unexpected token passed to verifier: %s", verifier.seen)
	}
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	verifier := &verifierStub{claims: &models.TenantClaims{Role: models.RoleAdmin, SchoolID: "school-1"}}
	router := newProtectedRouter(verifier)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
		recorder := serve(router, header)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: unexpected status %d", header, recorder.Code)
		}
	}

	verifier.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	recorder := serve(router, "Bearer bad")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	verifier := &verifierStub{claims: &models.TenantClaims{Role: models.RoleStudent, SchoolID: "school-1"}}
	router := newProtectedRouter(verifier, RequireRoles(models.RoleAdmin, models.RoleTeacher))

	recorder := serve(router, "Bearer t")
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if code := errorCode(t, recorder); code != appErrors.ErrForbidden.Code {
		t.Fatalf("unexpected code: %s", code)
	}

	verifier.claims.Role = models.RoleTeacher
	if recorder := serve(router, "Bearer t"); recorder.Code != http.StatusOK {
		t.Fatalf("teacher should pass, got %d", recorder.Code)
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRoles(models.RoleAdmin)(c)
	if !c.IsAborted() || recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected abort with 401, got %d", recorder.Code)
	}
}

func TestRateLimitIsPerSchool(t *testing.T) {
	verifier := &verifierStub{claims: &models.TenantClaims{Role: models.RoleAdmin, SchoolID: "school-1"}}
	router := newProtectedRouter(verifier, RateLimit(NewSchoolRateLimiter(0.001, 2)))

	for i := 0; i < 2; i++ {
		if recorder := serve(router, "Bearer t"); recorder.Code != http.StatusOK {
			t.Fatalf("request %d: unexpected status %d", i, recorder.Code)
		}
	}
	recorder := serve(router, "Bearer t")
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	verifier.claims = &models.TenantClaims{Role: models.RoleAdmin, SchoolID: "school-2"}
	if recorder := serve(router, "Bearer t"); recorder.Code != http.StatusOK {
		t.Fatalf("another school has its own bucket, got %d", recorder.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := NewSchoolRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("school-1") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestMetaHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if ExtractMeta(c) != nil {
		t.Fatalf("expected no meta before writes")
	}
	SetCacheHit(c, true)
	SetMeta(c, "owner", "T1")

	meta := ExtractMeta(c)
	if meta["cache_hit"] != true || meta["owner"] != "T1" {
		t.Fatalf("unexpected meta: %#v", meta)
	}
}

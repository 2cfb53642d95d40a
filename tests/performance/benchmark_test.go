package performance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
)

// staticResolver resolves every role to a fixed permission set
type staticResolver struct {
	perms []string
}

func (s *staticResolver) PermissionsForRole(ctx context.Context, role string) ([]string, error) {
	return s.perms, nil
}

func benchDeps(b *testing.B) (*observability.Logger, *observability.Metrics) {
	b.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		b.Fatalf("Failed to create metrics: %v", err)
	}
	return logger, metrics
}

var staffPermissions = []string{
	"STUDENT:CREATE:ANY",
	"STUDENT:READ:ANY",
	"STUDENT:UPDATE:ANY",
	"ENROLLMENT:CREATE:ANY",
	"ENROLLMENT:READ:ANY",
	"INVOICE:READ:ANY",
	"USER:READ:ANY",
}

// BenchmarkTokenSign benchmarks JWT issuance
func BenchmarkTokenSign(b *testing.B) {
	verifier := auth.NewTokenVerifier("benchmark-secret", "maestro")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := verifier.Sign(42, rbac.RoleStaff, time.Hour); err != nil {
			b.Fatalf("Failed to sign token: %v", err)
		}
	}
}

// BenchmarkTokenVerify benchmarks JWT verification, the first step of every
// authenticated request
func BenchmarkTokenVerify(b *testing.B) {
	verifier := auth.NewTokenVerifier("benchmark-secret", "maestro")
	token, err := verifier.Sign(42, rbac.RoleStaff, time.Hour)
	if err != nil {
		b.Fatalf("Failed to sign token: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := verifier.Verify(token); err != nil {
			b.Fatalf("Failed to verify token: %v", err)
		}
	}
}

// BenchmarkAuthMiddleware benchmarks the full authentication pass: bearer
// token extraction, verification and permission resolution
func BenchmarkAuthMiddleware(b *testing.B) {
	logger, _ := benchDeps(b)
	verifier := auth.NewTokenVerifier("benchmark-secret", "maestro")
	token, err := verifier.Sign(42, rbac.RoleStaff, time.Hour)
	if err != nil {
		b.Fatalf("Failed to sign token: %v", err)
	}

	handler := auth.Middleware(verifier, &staticResolver{perms: staffPermissions}, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest("GET", "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("Expected status 200, got %d", w.Code)
		}
	}
}

// BenchmarkGuardRequirePermission benchmarks the authorization gate on an
// already authenticated request
func BenchmarkGuardRequirePermission(b *testing.B) {
	logger, metrics := benchDeps(b)
	guard := rbac.NewGuard(metrics, nil, logger)

	handler := guard.RequirePermission("STUDENT:READ:ANY")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	ac := &auth.AuthContext{UserID: 42, Role: rbac.RoleStaff, Permissions: staffPermissions}
	req := httptest.NewRequest("GET", "/admin/users", nil)
	req = req.WithContext(auth.NewContext(req.Context(), ac))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("Expected status 200, got %d", w.Code)
		}
	}
}

// BenchmarkValidatePermissions benchmarks catalog validation of a role-sized
// permission list
func BenchmarkValidatePermissions(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := rbac.ValidatePermissions(staffPermissions); err != nil {
			b.Fatalf("Unexpected validation error: %v", err)
		}
	}
}

package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{
			name:        "valid JSON",
			body:        `{"name": "test"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			body:        `{invalid}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expectOK   bool
		expectCode int
	}{
		{
			name:     "valid JSON",
			body:     `{"name": "test"}`,
			expectOK: true,
		},
		{
			name:       "invalid JSON",
			body:       `{invalid}`,
			expectOK:   false,
			expectCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			ok := ParseJSONOrError(w, req, &dest)

			assert.Equal(t, tt.expectOK, ok)
			if !tt.expectOK {
				assert.Equal(t, tt.expectCode, w.Code)
			}
		})
	}
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name        string
		pathValue   string
		expectValue int64
		expectError bool
	}{
		{
			name:        "valid int64",
			pathValue:   "9223372036854775807",
			expectValue: 9223372036854775807,
			expectError: false,
		},
		{
			name:        "invalid int64",
			pathValue:   "abc",
			expectError: true,
		},
		{
			name:        "empty value",
			pathValue:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test/"+tt.pathValue, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.pathValue})

			val, err := ParsePathInt64(req, "id")

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectValue, val)
			}
		})
	}
}

func TestParsePathInt64OrError_Invalid(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})

	val, ok := ParsePathInt64OrError(w, req, "id")

	assert.False(t, ok)
	assert.Equal(t, int64(0), val)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	req := httptest.NewRequest("GET", "/test/TEACHER", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "TEACHER"})

	val, err := ParsePathString(req, "name")

	assert.NoError(t, err)
	assert.Equal(t, "TEACHER", val)
}

func TestParsePathString_Missing(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	_, err := ParsePathString(req, "name")

	assert.Error(t, err)
}

func TestParseQueryInt(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		defaultVal  int
		expectValue int
		expectError bool
	}{
		{"present", "/test?days=30", 7, 30, false},
		{"absent uses default", "/test", 7, 7, false},
		{"invalid", "/test?days=xyz", 7, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)

			val, err := ParseQueryInt(req, "days", tt.defaultVal)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectValue, val)
			}
		})
	}
}

func TestParseQueryInt64(t *testing.T) {
	req := httptest.NewRequest("GET", "/test?performedBy=42", nil)

	val, err := ParseQueryInt64(req, "performedBy", 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), val)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest("GET", "/test?severity=CRITICAL", nil)

	assert.Equal(t, "CRITICAL", ParseQueryString(req, "severity", ""))
	assert.Equal(t, "fallback", ParseQueryString(req, "missing", "fallback"))
}

func TestParseQueryTime(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test?fromDate=2025-06-01T10:30:00Z", nil)

		got, err := ParseQueryTime(req, "fromDate")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), *got)
	})

	t.Run("bare date", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test?fromDate=2025-06-01", nil)

		got, err := ParseQueryTime(req, "fromDate")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("absent returns nil", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)

		got, err := ParseQueryTime(req, "fromDate")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test?fromDate=yesterday", nil)

		_, err := ParseQueryTime(req, "fromDate")
		assert.Error(t, err)
	})
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expectPage  int
		expectLimit int
	}{
		{"defaults", "/test", 1, 50},
		{"explicit", "/test?page=3&limit=25", 3, 25},
		{"zero page clamps to 1", "/test?page=0", 1, 50},
		{"oversized limit clamps to max", "/test?limit=9999", 1, 500},
		{"negative limit falls back to default", "/test?limit=-5", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)

			page, limit, err := ParsePagination(req, 50, 500)

			require.NoError(t, err)
			assert.Equal(t, tt.expectPage, page)
			assert.Equal(t, tt.expectLimit, limit)
		})
	}
}

func TestParsePagination_Invalid(t *testing.T) {
	req := httptest.NewRequest("GET", "/test?page=abc", nil)

	_, _, err := ParsePagination(req, 50, 500)

	assert.Error(t, err)
}

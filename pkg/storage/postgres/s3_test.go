package postgres

// Unit tests for the S3 archive client helpers. The aws-sdk-go-v2 service
// clients do not export easily mockable interfaces, so the PutObject /
// GetObject paths are covered by the MinIO integration tests in
// s3_integration_test.go (run with -tags integration).

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"NotFound error", errors.New("operation error S3: HeadObject, https response error StatusCode: 404, NotFound"), true},
		{"NoSuchKey error", errors.New("NoSuchKey: The specified key does not exist"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isNotFoundError(tt.err))
		})
	}
}

func TestIsBucketAlreadyExistsError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"BucketAlreadyExists", errors.New("BucketAlreadyExists: The requested bucket name is not available"), true},
		{"BucketAlreadyOwnedByYou", errors.New("BucketAlreadyOwnedByYou: Your previous request to create the named bucket succeeded"), true},
		{"unrelated error", errors.New("access denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBucketAlreadyExistsError(tt.err))
		})
	}
}

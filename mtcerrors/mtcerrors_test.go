package mtcerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "routing_type", Reason: "unknown value \"fax\""}
	require.Equal(t, `config error: routing_type: unknown value "fax"`, err.Error())

	bare := &ConfigError{Reason: "missing routing block"}
	require.Equal(t, "missing routing block", bare.Error())
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Rule: "reserved-name", Symbol: "__Foo", Reason: "must not start with __"}
	require.Equal(t, `validation error (reserved-name) on "__Foo": must not start with __`, err.Error())
}

func TestAuthErrorMessage(t *testing.T) {
	err := &AuthError{Status: 401, Reason: "invalid token"}
	require.Equal(t, "auth error (401): invalid token", err.Error())

	bare := &AuthError{Reason: "missing credentials"}
	require.Equal(t, "auth error: missing credentials", bare.Error())
}

func TestRoutingErrorTypedFastPath(t *testing.T) {
	err := NewTypedRoutingError("upstream refused", BucketConnection, true)
	require.Equal(t, "upstream refused", err.Error())
	require.NotNil(t, err.Retryable)
	require.True(t, *err.Retryable)
	require.Equal(t, BucketConnection, err.Bucket)
}

func TestRoutingErrorOpaquePath(t *testing.T) {
	err := NewRoutingError("HTTP 503")
	require.Equal(t, "HTTP 503", err.Error())
	require.Nil(t, err.Retryable)
	require.Equal(t, ErrorBucket(""), err.Bucket)
}

func TestIoErrorMessage(t *testing.T) {
	err := &IoError{Op: "dial", Reason: "connection refused"}
	require.Equal(t, "io error during dial: connection refused", err.Error())
}

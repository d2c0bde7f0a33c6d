package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{name: "message only", err: NewValidationError("invalid code"), want: "invalid code"},
		{name: "single field", err: NewFieldError("email", "is required"), want: "email: is required"},
		{
			name: "fields sorted with message",
			err: &ValidationError{Message: "bad form", Fields: map[string]string{
				"password": "too short",
				"email":    "is required",
			}},
			want: "bad form: email: is required; password: too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUpstream_WrapsAndUnwraps(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("send code: %w", Upstream("email", base))

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "email", ue.Service)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "email unavailable: connection refused")
}

func TestUpstream_NilStaysNil(t *testing.T) {
	assert.NoError(t, Upstream("storage", nil))
}

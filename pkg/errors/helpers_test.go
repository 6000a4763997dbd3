package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citruserrors "github.com/tombee/citrus/pkg/errors"
)

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, citruserrors.Wrap(nil, "reading test.yaml"))
	assert.NoError(t, citruserrors.Wrapf(nil, "reading %s", "test.yaml"))
}

func TestWrap_KeepsKind(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantKind citruserrors.Kind
		matches  string
	}{
		{"validation failure", citruserrors.Validationf("expected 'a' but was 'b'"), citruserrors.KindValidation, "ValidationException"},
		{"timeout", &citruserrors.ActionError{Kind: citruserrors.KindActionTimeout, Message: "wait timed out"}, citruserrors.KindActionTimeout, "ActionTimeoutException"},
		{"definition problem", &citruserrors.ValidationError{Field: "actions[0]", Message: "unknown action"}, citruserrors.KindValidation, "CitrusRuntimeException"},
		{"plain error", errors.New("disk full"), citruserrors.KindRuntime, "RuntimeException"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := citruserrors.Wrap(tt.cause, "loading orders.csv")
			assert.Equal(t, tt.wantKind, citruserrors.KindOf(wrapped))
			assert.True(t, citruserrors.Matches(wrapped, tt.matches))
			assert.Same(t, tt.cause, errors.Unwrap(wrapped))
		})
	}
}

func TestWrap_Nested(t *testing.T) {
	cause := citruserrors.Validationf("row 3 has no id")
	err := citruserrors.Wrapf(citruserrors.Wrap(cause, "parsing rows"), "data source %s", "orders")

	assert.Equal(t, "data source orders: parsing rows: row 3 has no id", err.Error())
	assert.Equal(t, citruserrors.KindValidation, citruserrors.KindOf(err))
	assert.False(t, citruserrors.Matches(err, "ActionTimeoutException"))

	var ce *citruserrors.ContextError
	require.True(t, citruserrors.As(err, &ce))
	assert.Equal(t, "data source orders", ce.Context)

	var ae *citruserrors.ActionError
	require.True(t, citruserrors.As(err, &ae))
	assert.Same(t, cause, ae)
}

func TestWrap_OuterKindWins(t *testing.T) {
	// A classified failure around a wrapped one decides the kind.
	inner := citruserrors.Wrap(citruserrors.Validationf("bad value"), "step 2")
	err := citruserrors.WithCause(inner, citruserrors.KindActionTimeout, "wait gave up")

	assert.Equal(t, citruserrors.KindActionTimeout, citruserrors.KindOf(err))
	assert.True(t, errors.Is(err, inner))
}

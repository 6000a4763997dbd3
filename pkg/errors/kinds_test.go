package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citruserrors "github.com/tombee/citrus/pkg/errors"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want citruserrors.Kind
	}{
		{"CitrusRuntimeException", citruserrors.KindCitrusRuntime},
		{"org.citrusframework.exceptions.CitrusRuntimeException", citruserrors.KindCitrusRuntime},
		{" org.citrusframework.exceptions.ValidationException ", citruserrors.KindValidation},
		{"java.lang.RuntimeException", citruserrors.KindRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, citruserrors.ParseKind(tt.in))
		})
	}
}

func TestKind_Is(t *testing.T) {
	assert.True(t, citruserrors.KindValidation.Is(citruserrors.KindValidation))
	assert.True(t, citruserrors.KindValidation.Is(citruserrors.KindCitrusRuntime))
	assert.True(t, citruserrors.KindValidation.Is(citruserrors.KindThrowable))
	assert.False(t, citruserrors.KindCitrusRuntime.Is(citruserrors.KindValidation))
	assert.False(t, citruserrors.KindActionTimeout.Is(citruserrors.KindValidation))
	assert.False(t, citruserrors.Kind("IOException").Is(citruserrors.KindRuntime))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want citruserrors.Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), citruserrors.KindRuntime},
		{"runtime", citruserrors.Runtimef("boom"), citruserrors.KindCitrusRuntime},
		{"empty kind", &citruserrors.ActionError{Message: "boom"}, citruserrors.KindCitrusRuntime},
		{"validation", citruserrors.Validationf("mismatch"), citruserrors.KindValidation},
		{"wrapped validation", fmt.Errorf("ctx: %w", citruserrors.Validationf("mismatch")), citruserrors.KindValidation},
		{"timeout", &citruserrors.TimeoutError{Operation: "wait"}, citruserrors.KindActionTimeout},
		{"deadline", context.DeadlineExceeded, citruserrors.KindActionTimeout},
		{"aggregate", &citruserrors.AggregateError{Errors: []error{citruserrors.Validationf("x")}}, citruserrors.KindCitrusRuntime},
		{"test case", &citruserrors.TestCaseFailedError{Test: "t", Cause: errors.New("x")}, citruserrors.KindTestCaseFailed},
		{
			"outermost wins",
			citruserrors.WithCause(context.DeadlineExceeded, citruserrors.KindValidation, "wrapped"),
			citruserrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, citruserrors.KindOf(tt.err))
		})
	}
}

func TestMatches(t *testing.T) {
	err := citruserrors.Runtimef("Generated error to interrupt test execution")

	assert.True(t, citruserrors.Matches(err, "org.citrusframework.exceptions.CitrusRuntimeException"))
	assert.True(t, citruserrors.Matches(err, "RuntimeException"))
	assert.False(t, citruserrors.Matches(err, "ValidationException"))
	assert.False(t, citruserrors.Matches(nil, "CitrusRuntimeException"))
	assert.True(t, citruserrors.Matches(citruserrors.Validationf("x"), "CitrusRuntimeException"))
}

func TestAggregateError(t *testing.T) {
	first := citruserrors.Runtimef("first")
	second := errors.New("second")
	agg := &citruserrors.AggregateError{Errors: []error{first, second}}

	assert.Equal(t, "2 of the parallel actions failed: [first; second]", agg.Error())
	assert.True(t, errors.Is(agg, second))

	var actionErr *citruserrors.ActionError
	require.True(t, errors.As(agg, &actionErr))
	assert.Equal(t, "first", actionErr.Message)
}

func TestActionError_Error(t *testing.T) {
	err := &citruserrors.ActionError{Action: "sql", Message: "statement failed", Cause: errors.New("no such table")}
	assert.Equal(t, "sql: statement failed: no such table", err.Error())
	assert.Nil(t, citruserrors.WithCause(nil, citruserrors.KindRuntime, "unused"))
}

func TestTestCaseFailedError_Unwrap(t *testing.T) {
	root := citruserrors.Runtimef("root")
	err := &citruserrors.TestCaseFailedError{Test: "order-flow", Cause: root}

	assert.Equal(t, "test case 'order-flow' failed: root", err.Error())
	assert.Same(t, root, errors.Unwrap(err))
}

func TestKind_Known(t *testing.T) {
	assert.True(t, citruserrors.KindThrowable.Known())
	assert.True(t, citruserrors.ParseKind("org.citrusframework.exceptions.ValidationException").Known())
	assert.False(t, citruserrors.Kind("IOException").Known())
}

func TestJoin(t *testing.T) {
	first := errors.New("first")
	assert.Nil(t, citruserrors.Join(nil, nil))
	assert.True(t, errors.Is(citruserrors.Join(first, errors.New("second")), first))
}

package action

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_ReaderPrompter(t *testing.T) {
	tc, _ := newTestContext(t)
	var out bytes.Buffer

	a := NewInput("Continue?", "answer")
	a.ValidAnswers = "yes/no"
	a.Prompter = NewReaderPrompter(strings.NewReader("maybe\nyes\n"), &out)

	require.NoError(t, a.Execute(context.Background(), tc))
	v, err := tc.GetVariable("answer")
	require.NoError(t, err)
	assert.Equal(t, "yes", v)
	assert.Contains(t, out.String(), "Continue? (yes/no): ")
}

func TestInput_DefaultVariable(t *testing.T) {
	tc, _ := newTestContext(t)
	a := NewInput("Name", "")
	a.Prompter = NewReaderPrompter(strings.NewReader("citrus\n"), nil)

	require.NoError(t, a.Execute(context.Background(), tc))
	v, _ := tc.GetVariable(DefaultInputVariable)
	assert.Equal(t, "citrus", v)
}

func TestInput_ExistingVariableSkipsPrompt(t *testing.T) {
	tc, _ := newTestContext(t)
	tc.SetVariable("answer", "preset")

	a := NewInput("Continue?", "answer")
	a.Prompter = NewReaderPrompter(strings.NewReader(""), nil)
	require.NoError(t, a.Execute(context.Background(), tc))

	v, _ := tc.GetVariable("answer")
	assert.Equal(t, "preset", v)
}

func TestInput_EOF(t *testing.T) {
	tc, _ := newTestContext(t)
	a := NewInput("Continue?", "answer")
	a.Prompter = NewReaderPrompter(strings.NewReader(""), nil)
	assert.Error(t, a.Execute(context.Background(), tc))
}

package functions

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citruserrors "github.com/tombee/citrus/pkg/errors"
)

func TestReplaceInString(t *testing.T) {
	r := Default()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no function", "plain text", "plain text"},
		{"single call", "citrus:upperCase('hello')", "HELLO"},
		{"embedded call", "Hello citrus:upperCase('world')!", "Hello WORLD!"},
		{"nested call", "citrus:concat('a', citrus:upperCase('b'), 'c')", "aBc"},
		{"comma inside quotes", "citrus:concat('x,y', 'z')", "x,yz"},
		{"multiple calls", "citrus:lowerCase('A')-citrus:lowerCase('B')", "a-b"},
		{"prefix without call", "see citrus:docs", "see citrus:docs"},
		{"unquoted argument", "citrus:stringLength(abcd)", "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ReplaceInString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceInString_Errors(t *testing.T) {
	r := Default()

	t.Run("unknown function", func(t *testing.T) {
		_, err := r.ReplaceInString("citrus:doesNotExist()")
		require.Error(t, err)
		assert.True(t, citruserrors.Matches(err, "CitrusRuntimeException"))
		var notFound *citruserrors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("unterminated call", func(t *testing.T) {
		_, err := r.ReplaceInString("citrus:upperCase('abc'")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unterminated")
	})

	t.Run("function failure", func(t *testing.T) {
		_, err := r.ReplaceInString("citrus:sum('one')")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "citrus:sum failed")
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("greet", func(args []string) (string, error) {
		return "hi " + args[0], nil
	})

	assert.Equal(t, []string{"greet"}, r.Names())
	assert.True(t, r.IsFunction("citrus:greet('bob')"))
	assert.True(t, r.IsFunction("  citrus:greet('bob')  "))
	assert.False(t, r.IsFunction("x citrus:greet('bob')"))
	assert.False(t, r.IsFunction("citrus:greet('bob') x"))

	got, err := r.Resolve("citrus:greet('bob')")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got)

	got, err = r.Resolve("not a call")
	require.NoError(t, err)
	assert.Equal(t, "not a call", got)
}

func TestBuiltins(t *testing.T) {
	r := Default()

	tests := []struct {
		expr string
		want string
	}{
		{"citrus:trim('  padded  ')", "padded"},
		{"citrus:substring('Hello World', 6)", "World"},
		{"citrus:substring('Hello World', 0, 5)", "Hello"},
		{"citrus:translate('H-e-l-l-o', '-', '')", "Hello"},
		{"citrus:encodeBase64('citrus')", "Y2l0cnVz"},
		{"citrus:decodeBase64('Y2l0cnVz')", "citrus"},
		{"citrus:sum('1', '2', '3.5')", "6.5"},
		{"citrus:sum('2', '3')", "5"},
		{"citrus:max('4', '9', '-1')", "9"},
		{"citrus:min('4', '9', '-1')", "-1"},
		{"citrus:absolute('-42')", "42"},
		{"citrus:escapeXml('<a & b>')", "&lt;a &amp; b&gt;"},
		{"citrus:stringLength('héllo')", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := r.ReplaceInString(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRandomFunctions(t *testing.T) {
	r := Default()

	n, err := r.ReplaceInString("citrus:randomNumber(8)")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{7}$`), n)

	s, err := r.ReplaceInString("citrus:randomString(12, 'UPPERCASE')")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{12}$`), s)

	s, err = r.ReplaceInString("citrus:randomString(6, 'LOWERCASE', 'true')")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{6}$`), s)

	id, err := r.ReplaceInString("citrus:randomUUID()")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), id)

	_, err = r.ReplaceInString("citrus:randomNumber(0)")
	assert.Error(t, err)

	_, err = r.ReplaceInString("citrus:randomString(4, 'WEIRD')")
	assert.Error(t, err)
}

func TestCurrentDate(t *testing.T) {
	r := Default()

	got, err := r.ReplaceInString("citrus:currentDate('yyyy-MM-dd')")
	require.NoError(t, err)
	_, err = time.Parse("2006-01-02", got)
	assert.NoError(t, err)

	got, err = r.ReplaceInString("citrus:currentDate()")
	require.NoError(t, err)
	_, err = time.Parse("02.01.2006", got)
	assert.NoError(t, err)

	_, err = r.ReplaceInString("citrus:currentDate('yyyy', 'soon')")
	assert.Error(t, err)
}

func TestGoLayout(t *testing.T) {
	assert.Equal(t, "02.01.2006", GoLayout("dd.MM.yyyy"))
	assert.Equal(t, "2006-01-02T15:04:05.000", GoLayout("yyyy-MM-dd'T'HH:mm:ss.SSS"))
}

func TestSystemTimestamp(t *testing.T) {
	got, err := Default().ReplaceInString("citrus:systemTimestamp()")
	require.NoError(t, err)
	ms, err := strconv.ParseInt(got, 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), ms, 5000)
}

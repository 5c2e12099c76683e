package naming

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		fallback string
		want     string
	}{
		{"simple upper", "Win32", "fallback", "win32"},
		{"dashes and spaces", "Foo-Bar Baz", "fallback", "foo_bar_baz"},
		{"collapses repeats", "Foo___Bar", "fallback", "foo_bar"},
		{"empty falls back", "---", "fallback", "fallback"},
		{"empty input falls back", "", "fallback", "fallback"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, SanitizeToken(c.in, c.fallback))
		})
	}
}

func TestSanitizeTokenNeverStartsOrEndsWithUnderscore(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sanitized token never has leading/trailing underscore or doubled underscore", prop.ForAll(
		func(s string) bool {
			got := SanitizeToken(s, "fallback")
			if strings.HasPrefix(got, "_") || strings.HasSuffix(got, "_") {
				return false
			}
			return !strings.Contains(got, "__")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestNamespaceSegments(t *testing.T) {
	got := NamespaceSegments("Windows.Win32.Foundation")
	assert.Equal(t, []string{"windows", "win32", "foundation"}, got)
}

func TestNamespaceSegmentsEmptySegmentFallsBack(t *testing.T) {
	got := NamespaceSegments("Windows..Foundation")
	assert.Equal(t, []string{"windows", "ns", "foundation"}, got)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "foo.bar", Identifier("Foo", "Bar"))
	assert.Equal(t, "id", Identifier())
	assert.Equal(t, "segment", Identifier("---"))
}

func TestHumanizeTitle(t *testing.T) {
	assert.Equal(t, "Foo Bar", HumanizeTitle("foo_bar"))
	assert.Equal(t, "Foo Bar", HumanizeTitle("foo-bar"))
	assert.Equal(t, "Baz", HumanizeTitle("windows.win32.baz"))
	assert.Equal(t, "", HumanizeTitle(""))
}

func TestEscapeReserved(t *testing.T) {
	assert.Equal(t, "type_", EscapeReserved("type", true))
	assert.Equal(t, "Type_", EscapeReserved("Type", true))
	assert.Equal(t, "Foo", EscapeReserved("foo", true))
	assert.Equal(t, "foo", EscapeReserved("foo", false))
}

package emailaddr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscore/internal/lookup"
)

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	c := FromTables(lookup.MustDefault())

	tests := []struct {
		email  string
		ok     bool
		reason string
	}{
		{"jane@acme.io", true, ""},
		{"first.last+tag@sub.acme.co.uk", true, ""},
		{"", false, "empty"},
		{"a@b", false, "too short"},
		{"jane@@acme.io", false, "exactly one @"},
		{"jane@localhost", false, "at least one dot"},
		{"jane doe@acme.io", false, "format is invalid"},
		{"jane@acme.c0m", false, "format is invalid"},
		{"jane@gmial.com", false, "typo"},
		{"bob@example.com", false, "placeholder"},
		{strings.Repeat("a", 150) + "@acme.io", false, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()
			ok, reason := c.Check(tt.email)
			assert.Equal(t, tt.ok, ok)
			if tt.reason != "" {
				assert.Contains(t, reason, tt.reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestStructural(t *testing.T) {
	t.Parallel()

	assert.True(t, Structural("jane@acme.io"))
	assert.True(t, Structural("jane@localhost"))
	assert.False(t, Structural("not-an-email"))
	assert.False(t, Structural("@acme.io"))
	assert.False(t, Structural("jane@"))
	assert.False(t, Structural("a@b@c"))
}

func TestDomainAndNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme.io", Domain(" Jane@ACME.io "))
	assert.Equal(t, "", Domain("nope"))
	assert.Equal(t, "jane@acme.io", Normalize("  Jane@ACME.io "))
}

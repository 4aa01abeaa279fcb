// Package emailaddr implements the single email-format rule shared by
// validation, enrichment and the final quality check.
package emailaddr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/leadscore/internal/lookup"
)

// MaxLength is the longest address accepted.
const MaxLength = 150

// local-part@domain with at least one dot in the domain and an alphabetic TLD.
var pattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Checker applies the format rule plus the typo and placeholder domain lists.
type Checker struct {
	typo map[string]struct{}
	fake map[string]struct{}
}

// NewChecker builds a Checker from lower-cased domain lists.
func NewChecker(typoDomains, fakeDomains []string) *Checker {
	return &Checker{
		typo: lookup.Set(typoDomains),
		fake: lookup.Set(fakeDomains),
	}
}

// FromTables builds a Checker from the lookup tables.
func FromTables(t *lookup.Tables) *Checker {
	return NewChecker(t.TypoEmailDomains, t.FakeEmailDomains)
}

// Check reports whether email passes the format rule. When it does not,
// reason names the first failed check.
func (c *Checker) Check(email string) (ok bool, reason string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return false, "email is empty"
	case len(email) < 5:
		return false, "email is too short"
	case len(email) > MaxLength:
		return false, fmt.Sprintf("email exceeds %d characters", MaxLength)
	case strings.Count(email, "@") != 1:
		return false, "email must contain exactly one @"
	}

	local, domain, _ := strings.Cut(email, "@")
	domain = strings.ToLower(domain)
	switch {
	case local == "" || domain == "":
		return false, "email local or domain part is empty"
	case !strings.Contains(domain, "."):
		return false, "email domain must contain at least one dot"
	case !pattern.MatchString(email):
		return false, "email format is invalid"
	}
	if _, bad := c.typo[domain]; bad {
		return false, fmt.Sprintf("possible typo in email domain: %s", domain)
	}
	if _, bad := c.fake[domain]; bad {
		return false, fmt.Sprintf("placeholder email domain: %s", domain)
	}
	return true, ""
}

// Valid is Check without the reason.
func (c *Checker) Valid(email string) bool {
	ok, _ := c.Check(email)
	return ok
}

// Structural reports whether email is at least shaped like an address:
// exactly one @ with a non-empty part on each side.
func Structural(email string) bool {
	email = strings.TrimSpace(email)
	if strings.Count(email, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(email, "@")
	return strings.TrimSpace(local) != "" && strings.TrimSpace(domain) != ""
}

// Domain returns the lower-cased domain of email, or "".
func Domain(email string) string {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

// Normalize returns the case-folded, trimmed identity used for duplicate detection.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

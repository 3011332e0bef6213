package membership

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/bookclurb/clurb-api/internal/models"
)

const (
	defaultMemberName = "New Member"
	defaultFirstName  = "User"
)

// ResolveDisplayName picks the name shown in a club's member list: an explicit
// signup name, then the identity's display name, then its email.
func ResolveDisplayName(explicit string, identity models.Identity) string {
	for _, candidate := range []string{explicit, identity.DisplayName, identity.Email} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return defaultMemberName
}

// DeriveNames splits a name into profile first/last names. Without a name the
// email local-part becomes the first name; lastName is empty when there is
// only one token.
func DeriveNames(explicit string, identity models.Identity) (firstName, lastName string) {
	name := strings.TrimSpace(explicit)
	if name == "" {
		name = strings.TrimSpace(identity.DisplayName)
	}
	if tokens := strings.Fields(name); len(tokens) > 0 {
		return tokens[0], strings.Join(tokens[1:], " ")
	}

	if local, _, _ := strings.Cut(strings.TrimSpace(identity.Email), "@"); local != "" {
		return local, ""
	}
	return defaultFirstName, ""
}

// EmailMatches compares addresses case-insensitively. An empty restriction
// matches any address.
func EmailMatches(restriction, email string) bool {
	restriction = strings.TrimSpace(restriction)
	if restriction == "" {
		return true
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	// Casers carry state and are not safe for concurrent use.
	fold := cases.Fold()
	return fold.String(restriction) == fold.String(email)
}

// mayClaim reports whether identity satisfies an invite's email restriction.
// A restricted invite needs an address the identity provider has verified.
func mayClaim(restriction string, identity models.Identity) bool {
	if strings.TrimSpace(restriction) == "" {
		return true
	}
	return identity.EmailVerified && EmailMatches(restriction, identity.Email)
}

package gitcore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthorIdentity reads GIT_AUTHOR_NAME, GIT_AUTHOR_EMAIL, and GIT_AUTHOR_DATE
// from the environment. Config-file fallback is out of scope: env vars only.
func AuthorIdentity() (Signature, error) {
	return identityFromEnv("GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_AUTHOR_DATE")
}

// CommitterIdentity reads GIT_COMMITTER_NAME, GIT_COMMITTER_EMAIL, and
// GIT_COMMITTER_DATE from the environment.
func CommitterIdentity() (Signature, error) {
	return identityFromEnv("GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL", "GIT_COMMITTER_DATE")
}

func identityFromEnv(nameVar, emailVar, dateVar string) (Signature, error) {
	name := os.Getenv(nameVar)
	if name == "" {
		return Signature{}, newError(ErrInvalid, fmt.Errorf("%s is not set", nameVar))
	}
	email := os.Getenv(emailVar)
	if email == "" {
		return Signature{}, newError(ErrInvalid, fmt.Errorf("%s is not set", emailVar))
	}

	when := time.Now()
	if raw := os.Getenv(dateVar); raw != "" {
		parsed, err := parseIdentityDate(raw)
		if err != nil {
			return Signature{}, newError(ErrInvalid, fmt.Errorf("invalid %s: %w", dateVar, err))
		}
		when = parsed
	}

	return Signature{Name: name, Email: email, When: when}, nil
}

// parseIdentityDate accepts either "<unix-ts> <±HHMM>" or ISO-8601 with an
// explicit timezone offset, per the environment-variable date contract.
func parseIdentityDate(raw string) (time.Time, error) {
	fields := strings.Fields(raw)
	if len(fields) == 2 {
		if unixTime, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			loc := parseTimezone(fields[1])
			if loc == nil {
				loc = time.UTC
			}
			return time.Unix(unixTime, 0).In(loc), nil
		}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05 -0700", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}

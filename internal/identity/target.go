package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTarget indicates a target expression that cannot be parsed.
// Distinct from ErrUserNotFound so callers can prompt re-entry instead of
// offering the linking flow.
var ErrInvalidTarget = errors.New("invalid target")

// Target is the parsed form of a payment target expression.
// Either UserID is set (direct numeric identity) or Handle is set, with
// Platform empty when the expression did not name one.
type Target struct {
	Platform Platform
	Handle   string
	UserID   int64
}

// ParseTarget parses a free-form target expression. Accepted forms:
//
//	@handle              platform left to the origin of the command
//	telegram:handle      explicit platform, full name
//	tg:@handle           explicit platform, two-letter alias
//	123456               direct internal user id
//
// Handles are normalized to lower case with any leading @ stripped, so
// parsing is idempotent over its own output.
func ParseTarget(raw string) (Target, error) {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return Target{}, fmt.Errorf("%w: empty expression", ErrInvalidTarget)
	}

	if id, err := strconv.ParseInt(expr, 10, 64); err == nil {
		if id <= 0 {
			return Target{}, fmt.Errorf("%w: non-positive user id", ErrInvalidTarget)
		}
		return Target{UserID: id}, nil
	}

	if prefix, rest, ok := strings.Cut(expr, ":"); ok {
		platform, err := ParsePlatform(strings.ToLower(strings.TrimSpace(prefix)))
		if err != nil {
			return Target{}, err
		}
		handle := normalizeHandle(rest)
		if handle == "" {
			return Target{}, fmt.Errorf("%w: empty handle", ErrInvalidTarget)
		}
		return Target{Platform: platform, Handle: handle}, nil
	}

	handle := normalizeHandle(expr)
	if handle == "" {
		return Target{}, fmt.Errorf("%w: empty handle", ErrInvalidTarget)
	}
	return Target{Handle: handle}, nil
}

func normalizeHandle(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

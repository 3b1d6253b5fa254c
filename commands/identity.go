package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// UserResolver turns a "Name#1234" chat tag into a platform user id. Nil is
// fine; tags are then rejected with a usage reply.
type UserResolver interface {
	ResolveTag(ctx context.Context, tag string) (string, error)
}

var (
	mentionRe = regexp.MustCompile(`<@!?(\d+)>`)
	tagRe     = regexp.MustCompile(`^(\S.*#\d{4})$`)
	digitsRe  = regexp.MustCompile(`(\d+)`)
)

// resolveTarget extracts a user id from the target argument of grant/deny: a
// mention, a Name#1234 tag, or a bare id. The returned error text is shown to
// the caller as-is.
func (r *Router) resolveTarget(ctx context.Context, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(arg, "<@"):
		if m := mentionRe.FindStringSubmatch(arg); m != nil {
			return m[1], nil
		}
	case strings.Contains(arg, "#"):
		m := tagRe.FindStringSubmatch(arg)
		if m == nil || r.Resolver == nil {
			break
		}
		id, err := r.Resolver.ResolveTag(ctx, m[1])
		if err != nil || id == "" {
			return "", fmt.Errorf("I wasn't able to find the user by that tag: %s", m[1])
		}
		return id, nil
	default:
		if m := digitsRe.FindStringSubmatch(arg); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("I wasn't able to get a target user id. You may omit other_user to target yourself, or use a mention.")
}

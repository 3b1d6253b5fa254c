package engine

import "fmt"

type VerdictKind int

const (
	// Delete the page, with Reason as the deletion log entry.
	VerdictDelete VerdictKind = iota
	// Rewrite the page's redirect to NewTarget instead of deleting.
	VerdictFixRedirect
	// Leave the page for human review. When Annotate is set, the deferral
	// reason is written back onto the page's delete-request template.
	VerdictDefer
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictDelete:
		return "delete"
	case VerdictFixRedirect:
		return "fix-redirect"
	case VerdictDefer:
		return "defer"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Verdict is the engine's decision for one page in one classification pass.
// It is produced once and never retried within the same sweep.
type Verdict struct {
	Kind      VerdictKind
	Reason    string
	NewTarget string // VerdictFixRedirect only
	Annotate  bool   // VerdictDefer only
}

func Delete(reason string) Verdict {
	return Verdict{Kind: VerdictDelete, Reason: reason}
}

func FixRedirect(newTarget, reason string) Verdict {
	return Verdict{Kind: VerdictFixRedirect, NewTarget: newTarget, Reason: reason}
}

func Defer(reason string, annotate bool) Verdict {
	return Verdict{Kind: VerdictDefer, Reason: reason, Annotate: annotate}
}

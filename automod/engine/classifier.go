package engine

import (
	"context"

	"github.com/inkipedia/wikimod/mediawiki"
)

type PageClassKind int

const (
	ClassNone PageClassKind = iota
	ClassTalkPage
	ClassCategory
	ClassUserPage
	ClassFilePage
	ClassRedirectLike
)

func (k PageClassKind) String() string {
	switch k {
	case ClassTalkPage:
		return "talk-page"
	case ClassCategory:
		return "category"
	case ClassUserPage:
		return "user-page"
	case ClassFilePage:
		return "file-page"
	case ClassRedirectLike:
		return "redirect"
	default:
		return "none"
	}
}

type PageClass struct {
	Kind PageClassKind
	// resolved redirect target title, ClassRedirectLike only
	RedirectTarget string
}

// Classify buckets a pending-deletion page by the policy that will judge it.
// The checks run in fixed priority order and the first match wins: a page can
// satisfy several syntactic conditions at once (a redirect in the File
// namespace must be handled as a file page), so the order is part of the
// contract.
func (eng *Engine) Classify(ctx context.Context, page *mediawiki.Page) (PageClass, error) {
	switch {
	case page.Namespace.IsTalk():
		return PageClass{Kind: ClassTalkPage}, nil
	case page.Namespace == mediawiki.NamespaceCategory:
		// emptiness is judged by the decision engine, not here
		return PageClass{Kind: ClassCategory}, nil
	case page.Namespace == mediawiki.NamespaceUser:
		return PageClass{Kind: ClassUserPage}, nil
	case page.Namespace == mediawiki.NamespaceFile:
		return PageClass{Kind: ClassFilePage}, nil
	}

	target, err := eng.ResolveRedirectTarget(ctx, page)
	if err != nil {
		return PageClass{}, err
	}
	if target != "" {
		return PageClass{Kind: ClassRedirectLike, RedirectTarget: target}, nil
	}
	return PageClass{Kind: ClassNone}, nil
}

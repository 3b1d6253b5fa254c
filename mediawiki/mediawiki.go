// Package mediawiki is a minimal client for the MediaWiki "action" API, covering
// the page, category, and user operations the moderation engine needs. All write
// operations share a single global rate limit, configured once on the client.
package mediawiki

import (
	"strings"
	"time"
)

// MediaWiki built-in namespace numbers.
type Namespace int

const (
	NamespaceMedia        Namespace = -2
	NamespaceSpecial      Namespace = -1
	NamespaceMain         Namespace = 0
	NamespaceTalk         Namespace = 1
	NamespaceUser         Namespace = 2
	NamespaceUserTalk     Namespace = 3
	NamespaceProject      Namespace = 4
	NamespaceProjectTalk  Namespace = 5
	NamespaceFile         Namespace = 6
	NamespaceFileTalk     Namespace = 7
	NamespaceMediaWiki    Namespace = 8
	NamespaceMediaWikiTalk Namespace = 9
	NamespaceTemplate     Namespace = 10
	NamespaceTemplateTalk Namespace = 11
	NamespaceHelp         Namespace = 12
	NamespaceHelpTalk     Namespace = 13
	NamespaceCategory     Namespace = 14
	NamespaceCategoryTalk Namespace = 15
)

// canonical prefixes in namespace-number order; the main namespace has none
var namespacePrefixes = map[Namespace]string{
	NamespaceTalk:          "Talk",
	NamespaceUser:          "User",
	NamespaceUserTalk:      "User talk",
	NamespaceProject:       "Project",
	NamespaceProjectTalk:   "Project talk",
	NamespaceFile:          "File",
	NamespaceFileTalk:      "File talk",
	NamespaceMediaWiki:     "MediaWiki",
	NamespaceMediaWikiTalk: "MediaWiki talk",
	NamespaceTemplate:      "Template",
	NamespaceTemplateTalk:  "Template talk",
	NamespaceHelp:          "Help",
	NamespaceHelpTalk:      "Help talk",
	NamespaceCategory:      "Category",
	NamespaceCategoryTalk:  "Category talk",
}

// IsTalk indicates whether this is a discussion namespace.
func (ns Namespace) IsTalk() bool {
	return ns >= 0 && ns%2 == 1
}

// Talk returns the discussion namespace paired with this subject namespace.
func (ns Namespace) Talk() Namespace {
	if ns < 0 || ns.IsTalk() {
		return ns
	}
	return ns + 1
}

// Subject returns the content namespace paired with this talk namespace.
func (ns Namespace) Subject() Namespace {
	if !ns.IsTalk() {
		return ns
	}
	return ns - 1
}

func (ns Namespace) Prefix() string {
	return namespacePrefixes[ns]
}

// ParseTitle splits a full page title into its namespace and bare name. Unknown
// or absent prefixes resolve to the main namespace.
func ParseTitle(title string) (Namespace, string) {
	prefix, name, ok := strings.Cut(title, ":")
	if !ok {
		return NamespaceMain, title
	}
	prefix = strings.ReplaceAll(strings.TrimSpace(prefix), "_", " ")
	for ns, p := range namespacePrefixes {
		if strings.EqualFold(prefix, p) {
			return ns, strings.TrimSpace(name)
		}
	}
	return NamespaceMain, title
}

// TogglePage maps a content page title to its talk page title and vice versa.
func TogglePage(title string) string {
	ns, name := ParseTitle(title)
	var out Namespace
	if ns.IsTalk() {
		out = ns.Subject()
	} else {
		out = ns.Talk()
	}
	if prefix := out.Prefix(); prefix != "" {
		return prefix + ":" + name
	}
	return name
}

// NormalizeCategoryTitle ensures the "Category:" prefix and converts the
// underscore form used in chat commands to display spaces.
func NormalizeCategoryTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	if ns, _ := ParseTitle(title); ns != NamespaceCategory {
		title = "Category:" + title
	}
	return title
}

// Revision is one entry of a page's history.
type Revision struct {
	ID        int64
	ParentID  int64
	User      string
	Timestamp time.Time
	Size      int64
	Comment   string
	Text      string
}

// Page is a point-in-time snapshot of a wiki page. Pages are fetched fresh per
// operation; there is no cross-request cache.
type Page struct {
	Title          string
	Namespace      Namespace
	Exists         bool
	Text           string
	IsRedirect     bool
	RedirectTarget string
}

// Contrib is a single edit from a user's contribution history, newest first.
type Contrib struct {
	PageTitle string
	Namespace Namespace
	Timestamp time.Time
	SizeDiff  int64
	NewPage   bool
}

// UserInfo is account metadata for a wiki user.
type UserInfo struct {
	Name       string
	Registered bool
	Groups     []string
	Blocked    bool
	EditCount  int64
	FirstEdit  time.Time
}

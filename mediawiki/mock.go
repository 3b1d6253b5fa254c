package mediawiki

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockSite is an in-memory Site for tests and fixtures. Not safe for
// concurrent mutation while a sweep is reading it.
type MockSite struct {
	mu        sync.Mutex
	pages     map[string]*Page
	revisions map[string][]Revision
	backlinks map[string][]string
	users     map[string]*UserInfo
	contribs  map[string][]Contrib

	// ordered log of write operations, "op:title" form
	WriteLog []string
	// titles whose deletion should be refused (exercises the failure path)
	FailDeletes map[string]bool
	Blocked     map[string]bool
}

func NewMockSite() *MockSite {
	return &MockSite{
		pages:       make(map[string]*Page),
		revisions:   make(map[string][]Revision),
		backlinks:   make(map[string][]string),
		users:       make(map[string]*UserInfo),
		contribs:    make(map[string][]Contrib),
		FailDeletes: make(map[string]bool),
		Blocked:     make(map[string]bool),
	}
}

// AddPage registers a page with the given text. Redirect structure is derived
// from the text the same way the live API reports it.
func (s *MockSite) AddPage(title, text string) *Page {
	ns, _ := ParseTitle(title)
	p := &Page{
		Title:     title,
		Namespace: ns,
		Exists:    true,
		Text:      text,
	}
	if target := parseRedirectTarget(text); target != "" && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "#REDIRECT") {
		p.IsRedirect = true
		p.RedirectTarget = target
	}
	s.pages[title] = p
	return p
}

// AddRevision appends history for a page, oldest first in call order.
func (s *MockSite) AddRevision(title, user, text string, size int64, ts time.Time) {
	revs := s.revisions[title]
	var parent int64
	if len(revs) > 0 {
		parent = revs[len(revs)-1].ID
	}
	s.revisions[title] = append(revs, Revision{
		ID:        int64(len(revs) + 1),
		ParentID:  parent,
		User:      user,
		Timestamp: ts,
		Size:      size,
		Text:      text,
	})
}

func (s *MockSite) AddBacklink(title, from string) {
	s.backlinks[title] = append(s.backlinks[title], from)
}

func (s *MockSite) AddUser(info UserInfo) {
	s.users[info.Name] = &info
}

func (s *MockSite) AddContrib(user string, c Contrib) {
	s.contribs[user] = append(s.contribs[user], c)
}

func (s *MockSite) GetPage(ctx context.Context, title string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[title]; ok {
		cp := *p
		return &cp, nil
	}
	ns, _ := ParseTitle(title)
	return &Page{Title: title, Namespace: ns, Exists: false}, nil
}

func (s *MockSite) Revisions(ctx context.Context, title string, limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs := s.revisions[title]
	// stored oldest-first, returned newest-first
	out := make([]Revision, 0, len(revs))
	for i := len(revs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, revs[i])
	}
	return out, nil
}

func (s *MockSite) FirstRevision(ctx context.Context, title string) (*Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs := s.revisions[title]
	if len(revs) == 0 {
		return nil, nil
	}
	cp := revs[0]
	return &cp, nil
}

func (s *MockSite) Backlinks(ctx context.Context, title string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bl := s.backlinks[title]
	if len(bl) > limit {
		bl = bl[:limit]
	}
	return append([]string{}, bl...), nil
}

func (s *MockSite) SavePage(ctx context.Context, title, text, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteLog = append(s.WriteLog, "save:"+title)
	p, ok := s.pages[title]
	if !ok {
		ns, _ := ParseTitle(title)
		p = &Page{Title: title, Namespace: ns}
		s.pages[title] = p
	}
	p.Exists = true
	p.Text = text
	if target := parseRedirectTarget(text); target != "" && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "#REDIRECT") {
		p.IsRedirect = true
		p.RedirectTarget = target
	} else {
		p.IsRedirect = false
		p.RedirectTarget = ""
	}
	return nil
}

func (s *MockSite) DeletePage(ctx context.Context, title, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeletes[title] {
		return false, fmt.Errorf("deletion of %q refused", title)
	}
	if _, ok := s.pages[title]; !ok {
		return false, nil
	}
	s.WriteLog = append(s.WriteLog, "delete:"+title)
	delete(s.pages, title)
	return true, nil
}

func (s *MockSite) MovePage(ctx context.Context, oldTitle, newTitle, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[oldTitle]
	if !ok {
		return fmt.Errorf("page %q does not exist", oldTitle)
	}
	s.WriteLog = append(s.WriteLog, "move:"+oldTitle)
	delete(s.pages, oldTitle)
	ns, _ := ParseTitle(newTitle)
	p.Title = newTitle
	p.Namespace = ns
	s.pages[newTitle] = p
	return nil
}

func (s *MockSite) SetRedirectTarget(ctx context.Context, title, target, summary string) error {
	return s.SavePage(ctx, title, redirectMarker+target+"]]", summary)
}

func (s *MockSite) CategoryArticles(ctx context.Context, category string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category = NormalizeCategoryTitle(category)
	var out []string
	for title, p := range s.pages {
		if p.Namespace == NamespaceCategory {
			continue
		}
		if strings.Contains(p.Text, "[["+category+"]]") || strings.Contains(p.Text, "[["+category+"|") {
			out = append(out, title)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MockSite) Subcategories(ctx context.Context, category string, recurse bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subcategoriesLocked(NormalizeCategoryTitle(category), recurse, map[string]bool{}), nil
}

func (s *MockSite) subcategoriesLocked(category string, recurse bool, seen map[string]bool) []string {
	var out []string
	for title, p := range s.pages {
		if p.Namespace != NamespaceCategory || seen[title] {
			continue
		}
		if strings.Contains(p.Text, "[["+category+"]]") || strings.Contains(p.Text, "[["+category+"|") {
			seen[title] = true
			out = append(out, title)
			if recurse {
				out = append(out, s.subcategoriesLocked(title, recurse, seen)...)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *MockSite) UserInfo(ctx context.Context, username string) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.Blocked = cp.Blocked || s.Blocked[username]
	return &cp, nil
}

func (s *MockSite) BlockUser(ctx context.Context, username, reason, expiry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteLog = append(s.WriteLog, "block:"+username)
	s.Blocked[username] = true
	return nil
}

func (s *MockSite) RollbackPage(ctx context.Context, title, user, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs := s.revisions[title]
	if len(revs) == 0 || revs[len(revs)-1].User != user {
		return fmt.Errorf("top revision of %q is not by %q", title, user)
	}
	s.WriteLog = append(s.WriteLog, "rollback:"+title)
	return nil
}

func (s *MockSite) UserContribs(ctx context.Context, username string, since time.Time) ([]Contrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Contrib
	for _, c := range s.contribs[username] {
		if c.Timestamp.After(since) || since.IsZero() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MockSite) ActiveUsers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.contribs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MockSite) AllPages(ctx context.Context, ns Namespace) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for title, p := range s.pages {
		if p.Namespace == ns && !p.IsRedirect {
			out = append(out, title)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ Site = (*MockSite)(nil)

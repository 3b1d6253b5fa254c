package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Client talks to a MediaWiki action API endpoint (".../api.php"). It keeps a
// logged-in cookie session and throttles all writes through a single limiter,
// one write per second by default.
type Client struct {
	Host      string // full api.php URL
	Username  string
	Password  string // bot password
	UserAgent string

	Client       *http.Client
	WriteLimiter *rate.Limiter

	csrfToken string
}

func NewClient(host, username, password string) *Client {
	return &Client{
		Host:         host,
		Username:     username,
		Password:     password,
		UserAgent:    fmt.Sprintf("wikimod/%s", versioninfo.Short()),
		Client:       robustHTTPClient(),
		WriteLimiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Generates an HTTP client with retry and timeout defaults suitable for a
// human-cadence bot. Retries connection errors, 5xx, and 429 (respecting
// Retry-After).
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	jar, err := newCookieJar()
	if err == nil {
		retryClient.HTTPClient.Jar = jar
	}
	client := retryClient.StandardClient()
	client.Timeout = 30 * time.Second
	return client
}

func newCookieJar() (http.CookieJar, error) {
	return cookiejar.New(nil)
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mediawiki api error (%s): %s", e.Code, e.Info)
}

type apiResponse struct {
	Error *apiError `json:"error"`
	Query *struct {
		Tokens map[string]string `json:"tokens"`
		Pages  []apiPage         `json:"pages"`
		CategoryMembers []struct {
			Title string    `json:"title"`
			NS    Namespace `json:"ns"`
		} `json:"categorymembers"`
		Backlinks []struct {
			Title string `json:"title"`
		} `json:"backlinks"`
		Users []struct {
			Name         string   `json:"name"`
			Missing      bool     `json:"missing"`
			Groups       []string `json:"groups"`
			EditCount    int64    `json:"editcount"`
			Registration string   `json:"registration"`
			BlockID      int64    `json:"blockid"`
		} `json:"users"`
		UserContribs []struct {
			Title     string    `json:"title"`
			NS        Namespace `json:"ns"`
			Timestamp string    `json:"timestamp"`
			SizeDiff  int64     `json:"sizediff"`
			New       bool      `json:"new"`
		} `json:"usercontribs"`
		AllUsers []struct {
			Name string `json:"name"`
		} `json:"allusers"`
		AllPages []struct {
			Title string `json:"title"`
		} `json:"allpages"`
	} `json:"query"`
	Login *struct {
		Result string `json:"result"`
	} `json:"login"`
	Edit *struct {
		Result string `json:"result"`
	} `json:"edit"`
	Delete *struct {
		Title string `json:"title"`
	} `json:"delete"`
	Move *struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"move"`
	Block *struct {
		User string `json:"user"`
	} `json:"block"`
	Continue map[string]string `json:"continue"`
}

type apiPage struct {
	Title    string    `json:"title"`
	NS       Namespace `json:"ns"`
	Missing  bool      `json:"missing"`
	Redirect bool      `json:"redirect"`
	Revisions []struct {
		RevID     int64  `json:"revid"`
		ParentID  int64  `json:"parentid"`
		User      string `json:"user"`
		Timestamp string `json:"timestamp"`
		Size      int64  `json:"size"`
		Comment   string `json:"comment"`
		Slots     map[string]struct {
			Content string `json:"content"`
		} `json:"slots"`
	} `json:"revisions"`
	Links []struct {
		Title string `json:"title"`
	} `json:"links"`
}

func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func (c *Client) post(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (*apiResponse, error) {
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("mediawiki api request failed: status=%d", resp.StatusCode)
	}
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding api response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

// Login performs the bot-password login dance and caches a CSRF token for
// subsequent writes.
func (c *Client) Login(ctx context.Context) error {
	resp, err := c.get(ctx, url.Values{
		"action": []string{"query"},
		"meta":   []string{"tokens"},
		"type":   []string{"login"},
	})
	if err != nil {
		return fmt.Errorf("fetching login token: %w", err)
	}
	if resp.Query == nil || resp.Query.Tokens["logintoken"] == "" {
		return fmt.Errorf("no login token in response")
	}
	resp, err = c.post(ctx, url.Values{
		"action":     []string{"login"},
		"lgname":     []string{c.Username},
		"lgpassword": []string{c.Password},
		"lgtoken":    []string{resp.Query.Tokens["logintoken"]},
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Login == nil || resp.Login.Result != "Success" {
		return fmt.Errorf("login rejected for %s", c.Username)
	}
	return c.refreshCSRFToken(ctx)
}

func (c *Client) refreshCSRFToken(ctx context.Context) error {
	resp, err := c.get(ctx, url.Values{
		"action": []string{"query"},
		"meta":   []string{"tokens"},
	})
	if err != nil {
		return fmt.Errorf("fetching csrf token: %w", err)
	}
	if resp.Query == nil || resp.Query.Tokens["csrftoken"] == "" {
		return fmt.Errorf("no csrf token in response")
	}
	c.csrfToken = resp.Query.Tokens["csrftoken"]
	return nil
}

// write waits on the global limiter, then POSTs params with the CSRF token.
func (c *Client) write(ctx context.Context, params url.Values) (*apiResponse, error) {
	if err := c.WriteLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	params.Set("token", c.csrfToken)
	return c.post(ctx, params)
}

func (c *Client) GetPage(ctx context.Context, title string) (*Page, error) {
	resp, err := c.get(ctx, url.Values{
		"action":  []string{"query"},
		"titles":  []string{title},
		"prop":    []string{"revisions|info"},
		"rvprop":  []string{"content"},
		"rvslots": []string{"main"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching page %q: %w", title, err)
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("no page data for %q", title)
	}
	p := resp.Query.Pages[0]
	page := &Page{
		Title:      p.Title,
		Namespace:  p.NS,
		Exists:     !p.Missing,
		IsRedirect: p.Redirect,
	}
	if len(p.Revisions) > 0 {
		page.Text = p.Revisions[0].Slots["main"].Content
	}
	if page.IsRedirect {
		page.RedirectTarget = parseRedirectTarget(page.Text)
	}
	return page, nil
}

// redirectMarker is the wikitext prefix of a redirect page.
const redirectMarker = "#REDIRECT [["

// matched case-insensitively in place; re-casing the text first would shift
// byte offsets wherever a rune changes width under ToUpper
var redirectTargetRe = regexp.MustCompile(`(?i)#REDIRECT \[\[([^\]]*)\]\]`)

func parseRedirectTarget(text string) string {
	m := redirectTargetRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimLeft(m[1], ": ")
}

func (c *Client) Revisions(ctx context.Context, title string, limit int) ([]Revision, error) {
	resp, err := c.get(ctx, url.Values{
		"action":  []string{"query"},
		"titles":  []string{title},
		"prop":    []string{"revisions"},
		"rvprop":  []string{"ids|user|timestamp|size|comment|content"},
		"rvslots": []string{"main"},
		"rvlimit": []string{fmt.Sprintf("%d", limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching revisions of %q: %w", title, err)
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("no revision data for %q", title)
	}
	return convertRevisions(resp.Query.Pages[0]), nil
}

// FirstRevision fetches the page's true first revision. The API pages history
// newest-first by default; rvdir=newer flips the direction so one row is the
// creating edit regardless of how long the history is.
func (c *Client) FirstRevision(ctx context.Context, title string) (*Revision, error) {
	resp, err := c.get(ctx, url.Values{
		"action":  []string{"query"},
		"titles":  []string{title},
		"prop":    []string{"revisions"},
		"rvprop":  []string{"ids|user|timestamp|size|comment|content"},
		"rvslots": []string{"main"},
		"rvlimit": []string{"1"},
		"rvdir":   []string{"newer"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching first revision of %q: %w", title, err)
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("no revision data for %q", title)
	}
	revs := convertRevisions(resp.Query.Pages[0])
	if len(revs) == 0 {
		return nil, nil
	}
	return &revs[0], nil
}

func convertRevisions(p apiPage) []Revision {
	var out []Revision
	for _, rev := range p.Revisions {
		ts, _ := time.Parse(time.RFC3339, rev.Timestamp)
		out = append(out, Revision{
			ID:        rev.RevID,
			ParentID:  rev.ParentID,
			User:      rev.User,
			Timestamp: ts,
			Size:      rev.Size,
			Comment:   rev.Comment,
			Text:      rev.Slots["main"].Content,
		})
	}
	return out
}

func (c *Client) Backlinks(ctx context.Context, title string, limit int) ([]string, error) {
	resp, err := c.get(ctx, url.Values{
		"action":  []string{"query"},
		"list":    []string{"backlinks"},
		"bltitle": []string{title},
		"bllimit": []string{fmt.Sprintf("%d", limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching backlinks of %q: %w", title, err)
	}
	var out []string
	if resp.Query != nil {
		for _, bl := range resp.Query.Backlinks {
			out = append(out, bl.Title)
		}
	}
	return out, nil
}

func (c *Client) SavePage(ctx context.Context, title, text, summary string) error {
	resp, err := c.write(ctx, url.Values{
		"action":  []string{"edit"},
		"title":   []string{title},
		"text":    []string{text},
		"summary": []string{summary},
		"bot":     []string{"1"},
	})
	if err != nil {
		return fmt.Errorf("saving page %q: %w", title, err)
	}
	if resp.Edit == nil || resp.Edit.Result != "Success" {
		return fmt.Errorf("saving page %q: edit not successful", title)
	}
	return nil
}

func (c *Client) DeletePage(ctx context.Context, title, reason string) (bool, error) {
	resp, err := c.write(ctx, url.Values{
		"action": []string{"delete"},
		"title":  []string{title},
		"reason": []string{reason},
	})
	if err != nil {
		return false, fmt.Errorf("deleting page %q: %w", title, err)
	}
	return resp.Delete != nil, nil
}

func (c *Client) MovePage(ctx context.Context, oldTitle, newTitle, reason string) error {
	resp, err := c.write(ctx, url.Values{
		"action":     []string{"move"},
		"from":       []string{oldTitle},
		"to":         []string{newTitle},
		"reason":     []string{reason},
		"movetalk":   []string{"1"},
		"noredirect": []string{"1"},
	})
	if err != nil {
		return fmt.Errorf("moving page %q: %w", oldTitle, err)
	}
	if resp.Move == nil {
		return fmt.Errorf("moving page %q: no move result", oldTitle)
	}
	return nil
}

func (c *Client) SetRedirectTarget(ctx context.Context, title, target, summary string) error {
	return c.SavePage(ctx, title, redirectMarker+target+"]]", summary)
}

func (c *Client) CategoryArticles(ctx context.Context, category string) ([]string, error) {
	return c.categoryMembers(ctx, category, "page|file")
}

func (c *Client) categoryMembers(ctx context.Context, category, cmtype string) ([]string, error) {
	var out []string
	params := url.Values{
		"action":  []string{"query"},
		"list":    []string{"categorymembers"},
		"cmtitle": []string{NormalizeCategoryTitle(category)},
		"cmtype":  []string{cmtype},
		"cmlimit": []string{"500"},
	}
	for {
		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("enumerating %q: %w", category, err)
		}
		if resp.Query != nil {
			for _, m := range resp.Query.CategoryMembers {
				out = append(out, m.Title)
			}
		}
		if cont, ok := resp.Continue["cmcontinue"]; ok {
			params.Set("cmcontinue", cont)
			continue
		}
		return out, nil
	}
}

func (c *Client) Subcategories(ctx context.Context, category string, recurse bool) ([]string, error) {
	seen := map[string]bool{}
	queue := []string{category}
	var out []string
	for len(queue) > 0 {
		cat := queue[0]
		queue = queue[1:]
		subs, err := c.categoryMembers(ctx, cat, "subcat")
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
			if recurse {
				queue = append(queue, sub)
			}
		}
	}
	return out, nil
}

func (c *Client) UserInfo(ctx context.Context, username string) (*UserInfo, error) {
	resp, err := c.get(ctx, url.Values{
		"action":  []string{"query"},
		"list":    []string{"users"},
		"ususers": []string{username},
		"usprop":  []string{"groups|editcount|registration|blockinfo"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", username, err)
	}
	if resp.Query == nil || len(resp.Query.Users) == 0 {
		return nil, nil
	}
	u := resp.Query.Users[0]
	if u.Missing {
		return nil, nil
	}
	info := &UserInfo{
		Name:       u.Name,
		Registered: true,
		Groups:     u.Groups,
		Blocked:    u.BlockID != 0,
		EditCount:  u.EditCount,
	}
	// first edit approximated by oldest contribution
	contribs, err := c.UserContribs(ctx, username, time.Time{})
	if err == nil && len(contribs) > 0 {
		info.FirstEdit = contribs[len(contribs)-1].Timestamp
	}
	return info, nil
}

func (c *Client) BlockUser(ctx context.Context, username, reason, expiry string) error {
	if expiry == "" {
		expiry = "never"
	}
	resp, err := c.write(ctx, url.Values{
		"action":        []string{"block"},
		"user":          []string{username},
		"reason":        []string{reason},
		"expiry":        []string{expiry},
		"autoblock":     []string{"1"},
		"nocreate":      []string{"1"},
		"allowusertalk": []string{"1"},
	})
	if err != nil {
		return fmt.Errorf("blocking user %q: %w", username, err)
	}
	if resp.Block == nil {
		return fmt.Errorf("blocking user %q: no block result", username)
	}
	return nil
}

func (c *Client) RollbackPage(ctx context.Context, title, user, summary string) error {
	// rollback uses its own token type
	resp, err := c.get(ctx, url.Values{
		"action": []string{"query"},
		"meta":   []string{"tokens"},
		"type":   []string{"rollback"},
	})
	if err != nil {
		return fmt.Errorf("fetching rollback token: %w", err)
	}
	if resp.Query == nil || resp.Query.Tokens["rollbacktoken"] == "" {
		return fmt.Errorf("no rollback token in response")
	}
	if err := c.WriteLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err = c.post(ctx, url.Values{
		"action":  []string{"rollback"},
		"title":   []string{title},
		"user":    []string{user},
		"summary": []string{summary},
		"token":   []string{resp.Query.Tokens["rollbacktoken"]},
	})
	if err != nil {
		return fmt.Errorf("rolling back %q: %w", title, err)
	}
	return nil
}

func (c *Client) UserContribs(ctx context.Context, username string, since time.Time) ([]Contrib, error) {
	params := url.Values{
		"action":  []string{"query"},
		"list":    []string{"usercontribs"},
		"ucuser":  []string{username},
		"ucprop":  []string{"title|timestamp|sizediff|flags"},
		"uclimit": []string{"500"},
	}
	if !since.IsZero() {
		params.Set("ucend", since.UTC().Format(time.RFC3339))
	}
	var out []Contrib
	for {
		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetching contribs of %q: %w", username, err)
		}
		if resp.Query != nil {
			for _, uc := range resp.Query.UserContribs {
				ts, _ := time.Parse(time.RFC3339, uc.Timestamp)
				out = append(out, Contrib{
					PageTitle: uc.Title,
					Namespace: uc.NS,
					Timestamp: ts,
					SizeDiff:  uc.SizeDiff,
					NewPage:   uc.New,
				})
			}
		}
		if cont, ok := resp.Continue["uccontinue"]; ok {
			params.Set("uccontinue", cont)
			continue
		}
		return out, nil
	}
}

func (c *Client) ActiveUsers(ctx context.Context) ([]string, error) {
	params := url.Values{
		"action":        []string{"query"},
		"list":          []string{"allusers"},
		"auactiveusers": []string{"1"},
		"aulimit":       []string{"500"},
	}
	var out []string
	for {
		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetching active users: %w", err)
		}
		if resp.Query != nil {
			for _, u := range resp.Query.AllUsers {
				out = append(out, u.Name)
			}
		}
		if cont, ok := resp.Continue["aufrom"]; ok {
			params.Set("aufrom", cont)
			continue
		}
		return out, nil
	}
}

func (c *Client) AllPages(ctx context.Context, ns Namespace) ([]string, error) {
	params := url.Values{
		"action":        []string{"query"},
		"list":          []string{"allpages"},
		"apnamespace":   []string{fmt.Sprintf("%d", ns)},
		"apfilterredir": []string{"nonredirects"},
		"aplimit":       []string{"500"},
	}
	var out []string
	for {
		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("enumerating namespace %d: %w", ns, err)
		}
		if resp.Query != nil {
			for _, p := range resp.Query.AllPages {
				out = append(out, p.Title)
			}
		}
		if cont, ok := resp.Continue["apcontinue"]; ok {
			params.Set("apcontinue", cont)
			continue
		}
		return out, nil
	}
}

var _ Site = (*Client)(nil)

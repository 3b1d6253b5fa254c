// Package commands is the chat-facing surface of the bot: parsing of the
// moderator command language, permission gating against the role lists, and
// human-readable status replies. It is transport-agnostic; the chat gateway
// consumer feeds it messages and a reply callback.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inkipedia/wikimod/automod/engine"
	"github.com/inkipedia/wikimod/automod/interwiki"
	"github.com/inkipedia/wikimod/automod/permstore"
	"github.com/inkipedia/wikimod/automod/profanity"
	"github.com/inkipedia/wikimod/automod/rank"
	"github.com/inkipedia/wikimod/mediawiki"
)

// Caller identifies who issued a command. ID is the chat platform user id the
// permission lists are keyed on; Name goes into wiki edit summaries.
type Caller struct {
	ID   string
	Name string
}

// Replier delivers one status line back to the caller's channel.
type Replier func(ctx context.Context, text string) error

// defaults for the optional category arguments
const (
	DefaultPendingCategory      = "Pages pending deletion"
	DefaultConstructionCategory = "Articles under construction"
)

// Router dispatches parsed commands onto the moderation engine. All commands
// run synchronously on the caller's goroutine; the gateway consumer decides
// how much concurrency it wants.
type Router struct {
	Logger    *slog.Logger
	Prefix    string // command marker, default "!"
	Perms     *permstore.Service
	Engine    *engine.Engine
	Ranker    *rank.Ranker
	Interwiki *interwiki.Bot
	Vandals   profanity.VandalStore
	Site      mediawiki.Site
	Resolver  UserResolver
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Router) prefix() string {
	if r.Prefix != "" {
		return r.Prefix
	}
	return "!"
}

// Dispatch handles one chat message. Reports whether the message was a
// command at all; non-commands are ignored silently. Command failures are
// replied to the caller and logged, never returned, so one bad command cannot
// take the consumer loop down.
func (r *Router) Dispatch(ctx context.Context, caller Caller, content string, reply Replier) bool {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix()) {
		return false
	}
	name, rest, _ := strings.Cut(strings.TrimPrefix(content, r.prefix()), " ")
	name = strings.ToLower(name)
	args := strings.Fields(rest)

	handler, ok := r.handlers()[name]
	if !ok {
		return false
	}

	logger := r.logger().With("command", name, "caller", caller.ID)
	logger.Info("handling command", "args", args)
	if err := handler(ctx, caller, args, reply); err != nil {
		commandCount.WithLabelValues(name, "error").Inc()
		logger.Error("command failed", "err", err)
		r.send(ctx, reply, fmt.Sprintf("Something went wrong running %s: %v", name, err))
		return true
	}
	commandCount.WithLabelValues(name, "ok").Inc()
	return true
}

type handlerFunc func(ctx context.Context, caller Caller, args []string, reply Replier) error

func (r *Router) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"move_category":       r.moveCategory,
		"recat":               r.moveCategory,
		"delete_category":     r.deleteCategory,
		"nuke":                r.nuke,
		"false":               r.falseTrigger,
		"whitelist":           r.whitelist,
		"grant":               r.grant,
		"deny":                r.deny,
		"auto_delete":         r.autoDelete,
		"autodel":             r.autoDelete,
		"remove_construction": r.removeConstruction,
		"interwiki":           r.runInterwiki,
		"iotm":                r.iotm,
	}
}

// send replies best-effort; a dropped reply is logged, not fatal.
func (r *Router) send(ctx context.Context, reply Replier, text string) {
	if err := reply(ctx, text); err != nil {
		r.logger().Error("failed to send reply", "err", err)
	}
}

func (r *Router) moveCategory(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if len(args) != 2 {
		r.send(ctx, reply, fmt.Sprintf("`%smove_category <old> <new>`. Category names must have underscores.", r.prefix()))
		return nil
	}
	if !r.Perms.IsEditor(caller.ID) {
		r.send(ctx, reply, "You don't have editor permission.")
		return nil
	}
	oldCat := mediawiki.NormalizeCategoryTitle(args[0])
	newCat := mediawiki.NormalizeCategoryTitle(args[1])
	r.send(ctx, reply, fmt.Sprintf("Recategorising `%s` to `%s`", oldCat, newCat))

	count, warnings, err := r.Engine.MoveCategory(ctx, oldCat, newCat, caller.Name)
	for _, w := range warnings {
		r.send(ctx, reply, "Warning: "+w)
	}
	if err != nil {
		return err
	}
	r.send(ctx, reply, fmt.Sprintf("Done, %d page(s) changed.", count))
	return nil
}

func (r *Router) deleteCategory(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if len(args) != 1 {
		r.send(ctx, reply, fmt.Sprintf("`%sdelete_category <category>`. Category names must have underscores.", r.prefix()))
		return nil
	}
	if !r.Perms.IsAdmin(caller.ID) {
		r.send(ctx, reply, "You don't have admin permission.")
		return nil
	}
	category := mediawiki.NormalizeCategoryTitle(args[0])
	r.send(ctx, reply, fmt.Sprintf("Removing `%s`", category))

	count, warnings, err := r.Engine.DeleteCategory(ctx, category, caller.Name)
	for _, w := range warnings {
		r.send(ctx, reply, "Warning: "+w)
	}
	if err != nil {
		return err
	}
	r.send(ctx, reply, fmt.Sprintf("Done, %d page(s) changed.", count))
	return nil
}

// nuke gate: admins always; editors only for a brand-new account that tripped
// the vandalism detection, and never for an account holding wiki rights.
func (r *Router) nuke(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if len(args) == 0 {
		r.send(ctx, reply, fmt.Sprintf("`%snuke <user>`", r.prefix()))
		return nil
	}
	username := strings.Join(args, " ")

	info, err := r.Site.UserInfo(ctx, username)
	if err != nil {
		return err
	}
	if info == nil || !info.Registered {
		r.send(ctx, reply, fmt.Sprintf("User %s was not found.", username))
		return nil
	}
	// registered accounts always carry '*' and 'user'; anything more is a
	// role someone granted on purpose
	if len(info.Groups) > 2 {
		r.send(ctx, reply, "Not nuking this user as they have established rights. If you really meant to do this, demote them first.")
		return nil
	}

	switch {
	case r.Perms.IsAdmin(caller.ID):
	case r.Perms.IsEditor(caller.ID):
		if info.FirstEdit.Before(time.Now().Add(-24 * time.Hour)) {
			r.send(ctx, reply, fmt.Sprintf("You don't have admin permission for this: %s's first contribution is more than a day old.", username))
			return nil
		}
		flagged, err := r.Vandals.Contains(ctx, username)
		if err != nil {
			return err
		}
		if !flagged {
			r.send(ctx, reply, fmt.Sprintf("You don't have admin permission for this: %s has not tripped the anti-vandalism detection.", username))
			return nil
		}
	default:
		r.send(ctx, reply, "You don't have admin permission.")
		return nil
	}

	res, err := r.Engine.NukeUser(ctx, username, caller.Name)
	if err != nil {
		return err
	}
	if res.AlreadyBlocked {
		r.send(ctx, reply, fmt.Sprintf("%s is already blocked, skipping block step.", username))
	}
	r.send(ctx, reply, fmt.Sprintf("Done: %d page(s) deleted, %d page(s) reverted, %d failure(s).", res.PagesDeleted, res.PagesReverted, res.Failures))
	return nil
}

func (r *Router) falseTrigger(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if len(args) == 0 {
		r.send(ctx, reply, fmt.Sprintf("`%sfalse <phrase>`", r.prefix()))
		return nil
	}
	if !r.Perms.IsPatrol(caller.ID) && !r.Perms.IsAdmin(caller.ID) {
		r.send(ctx, reply, "You do not have permission to do this.")
		return nil
	}
	phrase := strings.Join(args, " ")
	added, err := r.Perms.AddFalseTrigger(ctx, phrase)
	if err != nil {
		return err
	}
	if !added {
		r.send(ctx, reply, fmt.Sprintf("%s is already a false trigger.", phrase))
		return nil
	}
	r.send(ctx, reply, fmt.Sprintf("Added %s to false triggers!", phrase))
	return nil
}

func (r *Router) whitelist(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if len(args) == 0 {
		r.send(ctx, reply, fmt.Sprintf("`%swhitelist <word>`", r.prefix()))
		return nil
	}
	if !r.Perms.IsPatrol(caller.ID) && !r.Perms.IsAdmin(caller.ID) {
		r.send(ctx, reply, "You do not have permission to do this.")
		return nil
	}
	word := strings.Join(args, " ")
	added, err := r.Perms.AddWhitelist(ctx, word)
	if err != nil {
		return err
	}
	if !added {
		r.send(ctx, reply, fmt.Sprintf("%s is already whitelisted.", word))
		return nil
	}
	r.send(ctx, reply, fmt.Sprintf("Added %s to whitelist!", word))
	return nil
}

// grant lets anyone put themselves (or another) on patrol; every other role
// needs an owner.
func (r *Router) grant(ctx context.Context, caller Caller, args []string, reply Replier) error {
	role, targetID, ok := r.roleAndTarget(ctx, caller, args, "grant", reply)
	if !ok {
		return nil
	}
	if role != permstore.RolePatrol && !r.Perms.IsOwner(caller.ID) {
		r.send(ctx, reply, "You don't have permission to do that.")
		return nil
	}
	added, err := r.Perms.Grant(ctx, role, targetID)
	if err != nil {
		return err
	}
	if !added {
		r.send(ctx, reply, fmt.Sprintf("%s already has the role %s.", targetID, role))
		return nil
	}
	r.send(ctx, reply, fmt.Sprintf("Added %s to %s!", targetID, role))
	return nil
}

func (r *Router) deny(ctx context.Context, caller Caller, args []string, reply Replier) error {
	role, targetID, ok := r.roleAndTarget(ctx, caller, args, "deny", reply)
	if !ok {
		return nil
	}
	if role != permstore.RolePatrol && !r.Perms.IsOwner(caller.ID) {
		r.send(ctx, reply, "You don't have permission to do that.")
		return nil
	}
	removed, err := r.Perms.Deny(ctx, role, targetID)
	if err == permstore.ErrLastOwner {
		r.send(ctx, reply, "You may not remove the only owner. Add someone else first.")
		return nil
	}
	if err != nil {
		return err
	}
	if !removed {
		r.send(ctx, reply, fmt.Sprintf("%s already does not have the role %s.", targetID, role))
		return nil
	}
	r.send(ctx, reply, fmt.Sprintf("Removed %s from %s!", targetID, role))
	return nil
}

// roleAndTarget parses "<role> [target]" with the caller as the default
// target. A false return means a reply was already sent.
func (r *Router) roleAndTarget(ctx context.Context, caller Caller, args []string, verb string, reply Replier) (permstore.Role, string, bool) {
	if len(args) == 0 {
		r.send(ctx, reply, fmt.Sprintf("`%s%s <owner|admin|editor|patrol> [other_user]`", r.prefix(), verb))
		return "", "", false
	}
	role, err := permstore.ParseRole(args[0])
	if err != nil {
		r.send(ctx, reply, fmt.Sprintf("I don't know the role you're trying to %s: %s", verb, args[0]))
		return "", "", false
	}
	if len(args) == 1 {
		return role, caller.ID, true
	}
	targetID, err := r.resolveTarget(ctx, strings.Join(args[1:], " "))
	if err != nil {
		r.send(ctx, reply, err.Error())
		return "", "", false
	}
	return role, targetID, true
}

func (r *Router) autoDelete(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if !r.Perms.IsAdmin(caller.ID) {
		r.send(ctx, reply, "You don't have admin permission.")
		return nil
	}
	category := DefaultPendingCategory
	if len(args) > 0 {
		category = strings.Join(args, " ")
	}
	category = mediawiki.NormalizeCategoryTitle(category)
	catPage, err := r.Site.GetPage(ctx, category)
	if err != nil {
		return err
	}
	if !catPage.Exists {
		r.send(ctx, reply, "Error: the category does not exist.")
		return nil
	}
	r.send(ctx, reply, fmt.Sprintf("Auto-deleting from %s", category))

	count, err := r.Engine.RunAutoDelete(ctx, category, caller.Name)
	if err != nil {
		return err
	}
	r.send(ctx, reply, fmt.Sprintf("Done, %d page(s) deleted.", count))
	return nil
}

func (r *Router) removeConstruction(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if !r.Perms.IsEditor(caller.ID) {
		r.send(ctx, reply, "You don't have editor permission.")
		return nil
	}
	category := DefaultConstructionCategory
	if len(args) > 0 {
		category = strings.Join(args, " ")
	}
	count, err := r.Engine.RemoveConstruction(ctx, mediawiki.NormalizeCategoryTitle(category), caller.Name)
	if err != nil {
		return err
	}
	r.send(ctx, reply, fmt.Sprintf("Done, %d page(s) changed.", count))
	return nil
}

func (r *Router) runInterwiki(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if !r.Perms.IsEditor(caller.ID) {
		r.send(ctx, reply, "You don't have editor permission.")
		return nil
	}
	r.send(ctx, reply, "Running interwiki sync, this takes a while.")
	res, err := r.Interwiki.Sync(ctx, caller.Name)
	if err != nil {
		return err
	}
	r.send(ctx, reply, fmt.Sprintf("Done, %d page(s) scanned, %d changed, %d failure(s).", res.PagesScanned, res.PagesChanged, res.Failures))
	return nil
}

func (r *Router) iotm(ctx context.Context, caller Caller, args []string, reply Replier) error {
	if !r.Perms.IsEditor(caller.ID) {
		r.send(ctx, reply, "You don't have editor permission.")
		return nil
	}
	days := 30
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			r.send(ctx, reply, fmt.Sprintf("`%siotm [days]`", r.prefix()))
			return nil
		}
		days = n
	}
	since := time.Now().AddDate(0, 0, -days)
	scores, err := r.Ranker.EditorOfTheMonth(ctx, since)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		r.send(ctx, reply, fmt.Sprintf("No edits in the last %d day(s).", days))
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Editor standings for the last %d day(s):\n", days)
	for i, s := range scores {
		if i == 10 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s: score %d over %d edit(s)\n", i+1, s.User, s.Score, s.Edits)
	}
	r.send(ctx, reply, strings.TrimRight(sb.String(), "\n"))
	return nil
}

// Package permstore holds the bot's role lists and word filters, persisted as
// an append-only log of JSON snapshots (the most recent entry wins on load).
package permstore

import (
	"errors"
	"fmt"
	"slices"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RolePatrol Role = "patrol"
)

// ParseRole validates a role name from user input.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleEditor, RolePatrol:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %s", s)
}

// ErrLastOwner is returned when a deny would empty the owner list.
var ErrLastOwner = errors.New("refusing to remove the only owner")

// PermissionSet is the full durable permission state. The owner/admin/editor
// lists are stored disjoint; containment (owner implies admin implies editor)
// is applied by the predicates, not at rest. Patrol is independent of the
// hierarchy. Whitelist and FalseTriggers are the vandalism filter word lists.
type PermissionSet struct {
	Owner         []string `json:"owner"`
	Admin         []string `json:"admin"`
	Editor        []string `json:"editor"`
	Patrol        []string `json:"patrol"`
	Whitelist     []string `json:"whitelist"`
	FalseTriggers []string `json:"false-triggers"`
}

func (p *PermissionSet) IsOwner(id string) bool {
	return slices.Contains(p.Owner, id)
}

func (p *PermissionSet) IsAdmin(id string) bool {
	return p.IsOwner(id) || slices.Contains(p.Admin, id)
}

func (p *PermissionSet) IsEditor(id string) bool {
	return p.IsAdmin(id) || slices.Contains(p.Editor, id)
}

// IsPatrol is not implied by any other role, and implies none.
func (p *PermissionSet) IsPatrol(id string) bool {
	return slices.Contains(p.Patrol, id)
}

func (p *PermissionSet) roleList(role Role) *[]string {
	switch role {
	case RoleOwner:
		return &p.Owner
	case RoleAdmin:
		return &p.Admin
	case RoleEditor:
		return &p.Editor
	case RolePatrol:
		return &p.Patrol
	}
	return nil
}

// HasRole checks literal list membership, without hierarchy.
func (p *PermissionSet) HasRole(role Role, id string) bool {
	l := p.roleList(role)
	return l != nil && slices.Contains(*l, id)
}

// Grant adds id to the role list. Reports false when already present.
func (p *PermissionSet) Grant(role Role, id string) (bool, error) {
	l := p.roleList(role)
	if l == nil {
		return false, fmt.Errorf("unknown role: %s", role)
	}
	if slices.Contains(*l, id) {
		return false, nil
	}
	*l = append(*l, id)
	return true, nil
}

// Deny removes id from the role list. Removing the last owner is refused;
// the set is left unchanged.
func (p *PermissionSet) Deny(role Role, id string) (bool, error) {
	l := p.roleList(role)
	if l == nil {
		return false, fmt.Errorf("unknown role: %s", role)
	}
	idx := slices.Index(*l, id)
	if idx < 0 {
		return false, nil
	}
	if role == RoleOwner && len(p.Owner) == 1 {
		return false, ErrLastOwner
	}
	*l = slices.Delete(*l, idx, idx+1)
	return true, nil
}

// Clone returns a deep copy, so a mutation can be persisted before it becomes
// visible to readers.
func (p *PermissionSet) Clone() *PermissionSet {
	return &PermissionSet{
		Owner:         slices.Clone(p.Owner),
		Admin:         slices.Clone(p.Admin),
		Editor:        slices.Clone(p.Editor),
		Patrol:        slices.Clone(p.Patrol),
		Whitelist:     slices.Clone(p.Whitelist),
		FalseTriggers: slices.Clone(p.FalseTriggers),
	}
}

// Validate checks the loaded blob is usable. An empty owner list means we
// cannot infer who administers the bot.
func (p *PermissionSet) Validate() error {
	if len(p.Owner) == 0 {
		return errors.New("permission set has no owner")
	}
	return nil
}

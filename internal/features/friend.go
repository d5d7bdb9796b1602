package features

import (
	"cmp"
	"slices"
	"strings"
)

// FriendAccessRule records a Friend member of a scope.
type FriendAccessRule struct {
	Scope  string
	Member string
}

// FriendScope answers Friend visibility questions. Scopes are written
// Project.Module; the project is the text before the first dot.
type FriendScope struct {
	scope
	members map[string]map[string]FriendAccessRule
}

func NewFriendScope() *FriendScope {
	return &FriendScope{members: make(map[string]map[string]FriendAccessRule)}
}

// project returns the project prefix of a scope. Unqualified names have
// none.
func project(s string) (string, bool) {
	before, _, found := strings.Cut(s, ".")
	return before, found
}

// IsAccessible reports whether code in caller may use a Friend member of
// target: the scopes are identical, or both are qualified with the same
// project. Unqualified names only match themselves.
func (f *FriendScope) IsAccessible(target, caller, member string) bool {
	if strings.EqualFold(target, caller) {
		return true
	}
	tp, tok := project(target)
	cp, cok := project(caller)
	return tok && cok && strings.EqualFold(tp, cp)
}

// Register records member as a Friend member of scope.
func (f *FriendScope) Register(scope, member string) {
	k := fold(scope)
	if f.members[k] == nil {
		f.members[k] = make(map[string]FriendAccessRule)
	}
	f.members[k][fold(member)] = FriendAccessRule{Scope: scope, Member: member}
}

// IsFriend reports whether member was registered as Friend in scope.
func (f *FriendScope) IsFriend(scope, member string) bool {
	_, ok := f.members[fold(scope)][fold(member)]
	return ok
}

// Check reports whether caller may use member of target. Members that are
// not registered as Friend are always accessible here; Public and Private
// are enforced elsewhere.
func (f *FriendScope) Check(target, caller, member string) bool {
	if !f.IsFriend(target, member) {
		return true
	}
	return f.IsAccessible(target, caller, member)
}

// Rules returns the Friend members registered for scope, ordered by name.
func (f *FriendScope) Rules(scope string) []FriendAccessRule {
	var out []FriendAccessRule
	for _, r := range f.members[fold(scope)] {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b FriendAccessRule) int {
		return cmp.Compare(fold(a.Member), fold(b.Member))
	})
	return out
}

// ScopeOf returns the registered scope whose module part is module. A
// qualified module (Project.Module) only matches itself.
func (f *FriendScope) ScopeOf(module string) (string, bool) {
	key := fold(module)
	var found []string
	for k, rules := range f.members {
		if k != key {
			if _, mod, ok := strings.Cut(k, "."); !ok || mod != key {
				continue
			}
		}
		for _, r := range rules {
			found = append(found, r.Scope)
			break
		}
	}
	if len(found) == 0 {
		return "", false
	}
	slices.Sort(found)
	return found[0], true
}

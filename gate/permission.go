package gate

import "strings"

// Permission grants one action on one resource, written "resource:action".
// Either side may be the wildcard "*".
type Permission string

const Wildcard = "*"

// NewPermission joins resource and action.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits p; malformed permissions yield empty parts.
func (p Permission) Parse() (resource string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether p grants requested.
func (p Permission) Matches(requested Permission) bool {
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == Wildcard || res == reqRes) && (string(act) == Wildcard || act == reqAct)
}

// Grants reports whether any of perms matches resource:action.
func Grants(perms []Permission, resource string, action Action) bool {
	want := NewPermission(resource, action)
	for _, p := range perms {
		if p.Matches(want) {
			return true
		}
	}
	return false
}

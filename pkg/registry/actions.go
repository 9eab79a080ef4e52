// Package registry holds the static table of guarded API actions. Routes
// declare their authorization metadata at registration time; the same table
// feeds both startup reconciliation into the database and per-request
// enforcement, so the two can never disagree about an action's code.
package registry

import (
	"fmt"
	"net/http"
	"strings"
)

// ActionKind labels the operation class encoded into an action code.
type ActionKind string

const (
	Read   ActionKind = "Read"
	Write  ActionKind = "Write"
	Update ActionKind = "Update"
	Delete ActionKind = "Delete"
)

// Action is the authorization metadata attached to one HTTP operation.
type Action struct {
	// Method is the HTTP verb; empty defaults to GET.
	Method string
	// Kind classifies the operation.
	Kind ActionKind
	// Definition is the human-readable operation name, e.g. "Create Role".
	Definition string
	// Route groups actions by controller area, e.g. "Role".
	Route string
}

// Code returns the stable action code "{VERB}.{Kind}.{Definition}" with
// spaces removed from the definition. The same derivation runs at
// reconciliation and at enforcement, making codes identical byte for byte.
func (a Action) Code() string {
	method := strings.ToUpper(strings.TrimSpace(a.Method))
	if method == "" {
		method = http.MethodGet
	}
	definition := strings.ReplaceAll(a.Definition, " ", "")
	return fmt.Sprintf("%s.%s.%s", method, a.Kind, definition)
}

// Menu is one route area with the codes registered under it.
type Menu struct {
	Route string   `json:"route"`
	Codes []string `json:"codes"`
}

// Registry is the in-process action table, keyed by mux route name.
type Registry struct {
	actions    map[string]Action
	routeOrder []string
	codeOrder  map[string][]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		actions:   make(map[string]Action),
		codeOrder: make(map[string][]string),
	}
}

// NormalizeRoute strips a trailing "Controller" suffix from a route name.
func NormalizeRoute(route string) string {
	return strings.TrimSuffix(route, "Controller")
}

// Register records the action under the given mux route name. Route names
// are normalized; registering the same mux route twice replaces the action.
func (r *Registry) Register(muxRouteName string, action Action) {
	action.Route = NormalizeRoute(action.Route)

	if _, exists := r.actions[muxRouteName]; !exists {
		if _, seen := r.codeOrder[action.Route]; !seen {
			r.routeOrder = append(r.routeOrder, action.Route)
		}
		r.codeOrder[action.Route] = append(r.codeOrder[action.Route], action.Code())
	}
	r.actions[muxRouteName] = action
}

// Lookup returns the action registered under a mux route name.
func (r *Registry) Lookup(muxRouteName string) (Action, bool) {
	action, ok := r.actions[muxRouteName]
	return action, ok
}

// Menus groups registered codes by route, preserving registration order for
// both routes and codes.
func (r *Registry) Menus() []Menu {
	menus := make([]Menu, 0, len(r.routeOrder))
	for _, route := range r.routeOrder {
		codes := make([]string, len(r.codeOrder[route]))
		copy(codes, r.codeOrder[route])
		menus = append(menus, Menu{Route: route, Codes: codes})
	}
	return menus
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	return len(r.actions)
}

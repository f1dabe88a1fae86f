package ember

import (
	"strings"
)

// HandlerType tags the kind of handler a `RouteEntry` was registered
// with, mirroring the closed set from spec §3.
type HandlerType uint8

// Handler type tags.
const (
	HandlerStandard HandlerType = iota
	HandlerSimple
	HandlerStatic
	HandlerWebSocket
	HandlerRedirect
	HandlerInternal
	HandlerDynamic
)

// RouteClass is the classification a path is fixed into at registration
// time, per spec §3.
type RouteClass uint8

// Route classes.
const (
	ClassLiteral RouteClass = iota
	ClassParameterized
	ClassDynamic
)

// Extra pseudo-methods used for middleware-adjacent registrations, per
// spec §3 ("method (enum of HTTP verbs plus BEFORE, AFTER, AFTERAFTER)").
const (
	MethodBefore     = "BEFORE"
	MethodAfter      = "AFTER"
	MethodAfterAfter = "AFTERAFTER"
)

// RouteEntry is a registered association of method, path, handler pool
// and handler type. Its classification and path are fixed at
// construction and never change afterward.
type RouteEntry struct {
	Method      string
	Path        string
	Class       RouteClass
	ParamNames  []string // declaration order, for parameterized/dynamic routes
	Pool        handlerPool
	HandlerType HandlerType
	WSHandler   func(*Session) // set only when HandlerType == HandlerWebSocket
}

// RouteMatch is the per-request result of a successful resolution: the
// matched entry together with the parameter values bound during the
// walk, keyed by name.
type RouteMatch struct {
	Entry  *RouteEntry
	Params map[string]string
}

// RouteRegistry is the façade over the three tries described in spec
// §4.2-§4.3: a literal trie, a parameterized trie and a dynamic-prefix
// trie, consulted in that order. The first match wins; the registry
// never falls back across HTTP methods for the same path.
type RouteRegistry struct {
	literal *literalTrie
	param   *paramTrie
	dynamic *dynamicTrie

	mu      seqLock // guards `keys`, independent of the tries' own locks
	keys    map[string]bool
	entries []*RouteEntry
}

// NewRouteRegistry returns an empty `RouteRegistry`.
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		literal: newLiteralTrie(),
		param:   newParamTrie(),
		dynamic: newDynamicTrie(),
		keys:    map[string]bool{},
	}
}

// Register validates and inserts a new route. It fails with a
// `LifecycleError` (`DuplicateRoute`) if the literal "method:path" key
// already exists, per spec §3 and §6.
func (rr *RouteRegistry) Register(method, path string, pool handlerPool, ht HandlerType) (*RouteEntry, error) {
	if err := validateRoutePath(path); err != nil {
		return nil, err
	}

	key := method + ":" + path
	var dup bool
	rr.mu.read(func() { dup = rr.keys[key] })
	if dup {
		return nil, newLifecycleError("DuplicateRoute", key)
	}

	entry := &RouteEntry{
		Method:      method,
		Path:        path,
		Pool:        pool,
		HandlerType: ht,
	}

	switch {
	case strings.HasSuffix(path, "/*") || path == "/*":
		entry.Class = ClassDynamic
		prefix := strings.TrimSuffix(path, "*")
		prefix = strings.TrimSuffix(prefix, "/")
		entry.ParamNames = []string{"path"}
		rr.dynamic.insert(method, splitSegments(prefix), entry)
	case strings.Contains(path, "/:") || strings.HasPrefix(path, ":"):
		entry.Class = ClassParameterized
		segments := splitSegments(path)
		for _, s := range segments {
			if strings.HasPrefix(s, ":") {
				entry.ParamNames = append(entry.ParamNames, s[1:])
			}
		}
		rr.param.insert(method, segments, entry)
	default:
		entry.Class = ClassLiteral
		rr.literal.insert(key, entry)
	}

	rr.mu.write(func() {
		rr.keys[key] = true
		rr.entries = append(rr.entries, entry)
	})

	return entry, nil
}

// RegisterWebSocket registers a route whose requests are handed off to
// the WebSocket upgrade path instead of the ordinary handler-pool flow,
// per spec §4.10 step 2. It always registers under GET, since RFC 6455
// upgrades ride a GET request.
func (rr *RouteRegistry) RegisterWebSocket(path string, onConnect func(*Session)) (*RouteEntry, error) {
	entry, err := rr.Register("GET", path, nil, HandlerWebSocket)
	if err != nil {
		return nil, err
	}
	entry.WSHandler = onConnect
	return entry, nil
}

// Unregister removes the "method:path" key, allowing the route to be
// re-registered, and clears the literal trie's entry for that key, so a
// literal route stops resolving. Parameterized and dynamic routes are
// not removed from their tries: `Resolve` does not consult `keys`, so
// they keep resolving until the same method and path are registered
// again, which replaces their entry.
func (rr *RouteRegistry) Unregister(method, path string) {
	key := method + ":" + path
	rr.mu.write(func() {
		delete(rr.keys, key)
		for i, e := range rr.entries {
			if e.Method == method && e.Path == path {
				rr.entries = append(rr.entries[:i], rr.entries[i+1:]...)
				break
			}
		}
	})
	// Overwrite the literal trie's entry for key with nil, which never
	// matches.
	rr.literal.insert(key, nil)
}

// Resolve returns the first match among the three tries, in the order
// literal > parameterized > dynamic, or nil if none match.
func (rr *RouteRegistry) Resolve(method, path string) *RouteMatch {
	if e := rr.literal.lookup(method + ":" + path); e != nil {
		return &RouteMatch{Entry: e, Params: map[string]string{}}
	}

	segments := splitSegments(path)
	if e, values := rr.param.lookup(method, segments); e != nil {
		params := make(map[string]string, len(values))
		for i, v := range values {
			if i < len(e.ParamNames) {
				params[e.ParamNames[i]] = v
			}
		}
		return &RouteMatch{Entry: e, Params: params}
	}

	if e, tail := rr.dynamic.lookup(method, path); e != nil {
		return &RouteMatch{Entry: e, Params: map[string]string{"path": tail}}
	}

	return nil
}

// validateRoutePath applies the registration-time path checks from
// spec's supplemented feature list (grounded on `router.go`'s `add`).
func validateRoutePath(path string) error {
	switch {
	case path == "":
		return newLifecycleError("DuplicateRoute", "path cannot be empty")
	case path[0] != '/':
		return newLifecycleError("DuplicateRoute", "path must start with /")
	case path != "/" && strings.HasSuffix(path, "/") && !strings.HasSuffix(path, "/*"):
		return newLifecycleError("DuplicateRoute", "path cannot end with / except root")
	case strings.Contains(path, "//"):
		return newLifecycleError("DuplicateRoute", "path cannot contain //")
	}

	if strings.Contains(path, "*") {
		if strings.Count(path, "*") > 1 {
			return newLifecycleError("DuplicateRoute", "only one * allowed")
		}
		if path[len(path)-1] != '*' {
			return newLifecycleError("DuplicateRoute", "* must be the last segment")
		}
	}

	seen := map[string]bool{}
	for _, seg := range splitSegments(path) {
		if strings.HasPrefix(seg, ":") {
			name := seg[1:]
			if name == "" {
				return newLifecycleError("DuplicateRoute", "empty param name")
			}
			if seen[name] {
				return newLifecycleError("DuplicateRoute", "duplicate param name: "+name)
			}
			seen[name] = true
		}
	}

	return nil
}

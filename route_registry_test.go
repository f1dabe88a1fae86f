package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPool() handlerPool {
	return NewSingleInstancePool(func(req *Request, res *Response) (interface{}, error) {
		return "ok", nil
	})
}

func TestRouteRegistryLiteralMatch(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/users", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	match := rr.Resolve("GET", "/users")
	assert.NotNil(t, match)
	assert.Equal(t, ClassLiteral, match.Entry.Class)
	assert.Empty(t, match.Params)

	assert.Nil(t, rr.Resolve("GET", "/unknown"))
	assert.Nil(t, rr.Resolve("POST", "/users"))
}

func TestRouteRegistryParameterizedMatch(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/users/:userID/posts/:postID", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	match := rr.Resolve("GET", "/users/42/posts/7")
	assert.NotNil(t, match)
	assert.Equal(t, ClassParameterized, match.Entry.Class)
	assert.Equal(t, "42", match.Params["userID"])
	assert.Equal(t, "7", match.Params["postID"])
}

func TestRouteRegistryDynamicPrefixMatch(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/assets/*", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	match := rr.Resolve("GET", "/assets/css/site.css")
	assert.NotNil(t, match)
	assert.Equal(t, ClassDynamic, match.Entry.Class)
	assert.Equal(t, "/css/site.css", match.Params["path"])
}

func TestRouteRegistryPrecedence(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/users/me", newTestPool(), HandlerStandard)
	assert.NoError(t, err)
	_, err = rr.Register("GET", "/users/:id", newTestPool(), HandlerStandard)
	assert.NoError(t, err)
	_, err = rr.Register("GET", "/*", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	// literal beats parameterized
	match := rr.Resolve("GET", "/users/me")
	assert.Equal(t, ClassLiteral, match.Entry.Class)

	// parameterized beats dynamic
	match = rr.Resolve("GET", "/users/99")
	assert.Equal(t, ClassParameterized, match.Entry.Class)
	assert.Equal(t, "99", match.Params["id"])

	// only the dynamic catch-all matches this path
	match = rr.Resolve("GET", "/anything/else")
	assert.Equal(t, ClassDynamic, match.Entry.Class)
}

func TestRouteRegistryParamTrieBacktracksPastDeadEndLiteral(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/a/:x", newTestPool(), HandlerStandard)
	assert.NoError(t, err)
	_, err = rr.Register("GET", "/a/b/:y", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	// "/a/b" descends into the literal "b" node (shared with
	// "/a/b/:y"), which has no terminal handler of its own for two
	// segments; the walk must backtrack to ":x" bound to "b".
	match := rr.Resolve("GET", "/a/b")
	assert.NotNil(t, match)
	assert.Equal(t, ClassParameterized, match.Entry.Class)
	assert.Equal(t, "b", match.Params["x"])

	// the deeper route still resolves on its own.
	match = rr.Resolve("GET", "/a/b/c")
	assert.NotNil(t, match)
	assert.Equal(t, "c", match.Params["y"])
}

func TestRouteRegistryDuplicateRejected(t *testing.T) {
	rr := NewRouteRegistry()
	_, err := rr.Register("GET", "/users", newTestPool(), HandlerStandard)
	assert.NoError(t, err)

	_, err = rr.Register("GET", "/users", newTestPool(), HandlerStandard)
	assert.Error(t, err)
	lerr, ok := err.(*LifecycleError)
	assert.True(t, ok)
	assert.Equal(t, "DuplicateRoute", lerr.Reason)
}

func TestRouteRegistryInvalidPaths(t *testing.T) {
	rr := NewRouteRegistry()

	_, err := rr.Register("GET", "", newTestPool(), HandlerStandard)
	assert.Error(t, err)

	_, err = rr.Register("GET", "no-leading-slash", newTestPool(), HandlerStandard)
	assert.Error(t, err)

	_, err = rr.Register("GET", "/double//slash", newTestPool(), HandlerStandard)
	assert.Error(t, err)

	_, err = rr.Register("GET", "/foo*/bar", newTestPool(), HandlerStandard)
	assert.Error(t, err)
}

func TestRouteRegistryWebSocketRegistration(t *testing.T) {
	rr := NewRouteRegistry()
	var gotSession *Session
	entry, err := rr.RegisterWebSocket("/ws/chat", func(s *Session) { gotSession = s })
	assert.NoError(t, err)
	assert.Equal(t, HandlerWebSocket, entry.HandlerType)

	match := rr.Resolve("GET", "/ws/chat")
	assert.NotNil(t, match)
	assert.NotNil(t, match.Entry.WSHandler)

	match.Entry.WSHandler(&Session{})
	assert.NotNil(t, gotSession)
}

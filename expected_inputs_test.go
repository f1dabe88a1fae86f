package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reqWithQuery(raw string) *Request {
	req, err := parseRequest([]byte("GET /search?"+raw+" HTTP/1.1\r\nHost: x\r\n\r\n"), "")
	if err != nil {
		panic(err)
	}
	return req
}

func TestExpectedInputsQueryTypedAccessors(t *testing.T) {
	req := reqWithQuery("page=2&q=hello&ratio=1.5&ok=true&c=z")

	in := (&ExpectedInputs{}).Query("page").Query("q").Query("ratio").Query("ok").Query("c")
	in.bind(req)
	assert.NoError(t, in.Touch())

	page, err := in.Int("page")
	assert.NoError(t, err)
	assert.Equal(t, 2, page)

	q, err := in.String("q")
	assert.NoError(t, err)
	assert.Equal(t, "hello", q)

	ratio, err := in.Double("ratio")
	assert.NoError(t, err)
	assert.Equal(t, 1.5, ratio)

	ok, err := in.Boolean("ok")
	assert.NoError(t, err)
	assert.True(t, ok)

	c, err := in.Char("c")
	assert.NoError(t, err)
	assert.Equal(t, 'z', c)
}

func TestExpectedInputsMissingQueryParamFailsTouch(t *testing.T) {
	req := reqWithQuery("page=2")
	in := (&ExpectedInputs{}).Query("page").Query("missing")
	in.bind(req)

	err := in.Touch()
	assert.Error(t, err)
	verr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "MissingParameter", verr.Reason)
	assert.Equal(t, "missing", verr.Name)
}

func TestExpectedInputsTypeMismatch(t *testing.T) {
	req := reqWithQuery("page=not-a-number")
	in := (&ExpectedInputs{}).Query("page")
	in.bind(req)
	assert.NoError(t, in.Touch())

	_, err := in.Int("page")
	assert.Error(t, err)
	verr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, "TypeMismatch", verr.Reason)
}

func TestExpectedInputsJSONField(t *testing.T) {
	raw := []byte("POST /signup HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: 23\r\n\r\n{\"name\":\"ada\",\"age\":36}")
	req, err := parseRequest(raw, "")
	assert.NoError(t, err)

	in := (&ExpectedInputs{}).JSONField("name").JSONField("age")
	in.bind(req)
	assert.NoError(t, in.Touch())

	name, err := in.String("name")
	assert.NoError(t, err)
	assert.Equal(t, "ada", name)

	age, err := in.Int("age")
	assert.NoError(t, err)
	assert.Equal(t, 36, age)
}

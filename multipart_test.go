package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMultipartFieldsAndFiles(t *testing.T) {
	boundary := "XYZ"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n" +
		"hello world\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"avatar\"; filename=\"pic.png\"\r\n\r\n" +
		"\x89PNGDATA\r\n" +
		"--" + boundary + "--\r\n"

	fields, files, err := parseMultipart("multipart/form-data; boundary="+boundary, []byte(body))
	assert.NoError(t, err)
	assert.Equal(t, "hello world", fields["title"])

	file, ok := files["avatar"]
	assert.True(t, ok)
	assert.Equal(t, "pic.png", file.Filename)
	assert.Equal(t, "\x89PNGDATA", string(file.Content))
}

func TestParseMultipartMissingBoundary(t *testing.T) {
	_, _, err := parseMultipart("multipart/form-data", []byte("anything"))
	assert.Error(t, err)
	perr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, "MalformedMultipart", perr.Reason)
}

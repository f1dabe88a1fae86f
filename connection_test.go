package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestCompleteRequiresBlankLineAfterHeaders(t *testing.T) {
	assert.False(t, requestComplete([]byte("GET / HTTP/1.1\r\nHost: x\r\n")))
	assert.True(t, requestComplete([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")))
}

func TestRequestCompleteWaitsForDeclaredBody(t *testing.T) {
	head := "POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\n"
	assert.False(t, requestComplete([]byte(head+"abc")))
	assert.True(t, requestComplete([]byte(head+"abcde")))
}

func TestPeekHeadersExtractsUpgradeHeaders(t *testing.T) {
	raw := []byte("GET /ws HTTP/1.1\r\nHost: x\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\n")
	headers := peekHeaders(raw)
	assert.True(t, IsWebSocketUpgrade(headers))
}

func TestErrIsClosedMatchesListenerCloseError(t *testing.T) {
	assert.True(t, errIsClosed(&netOpError{"use of closed network connection"}))
	assert.False(t, errIsClosed(&netOpError{"connection reset by peer"}))
}

type netOpError struct{ msg string }

func (e *netOpError) Error() string { return e.msg }

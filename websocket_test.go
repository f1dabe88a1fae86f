package ember

import (
	"bufio"
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWebSocketUpgrade(t *testing.T) {
	headers := Header{"Connection": "Upgrade", "Upgrade": "websocket"}
	assert.True(t, IsWebSocketUpgrade(headers))

	assert.False(t, IsWebSocketUpgrade(Header{"Connection": "keep-alive"}))
}

func TestWriteFrameThenReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, writeFrame(&buf, opText, []byte("hello")))

	f, err := readFrame(bufio.NewReader(&buf), 65536)
	assert.NoError(t, err)
	assert.Equal(t, opText, f.opcode)
	assert.Equal(t, "hello", string(f.payload))
}

func TestReadFrameAppliesMask(t *testing.T) {
	payload := []byte("masked")
	maskKey := [4]byte{1, 2, 3, 4}
	masked := make([]byte, len(payload))
	for i := range payload {
		masked[i] = payload[i] ^ maskKey[i%4]
	}

	var buf bytes.Buffer
	buf.WriteByte(0x80 | byte(opBinary))
	buf.WriteByte(0x80 | byte(len(masked))) // masked bit set
	buf.Write(maskKey[:])
	buf.Write(masked)

	f, err := readFrame(bufio.NewReader(&buf), 65536)
	assert.NoError(t, err)
	assert.Equal(t, opBinary, f.opcode)
	assert.Equal(t, payload, f.payload)
}

func TestReadFrameRejectsReservedBits(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x80 | 0x40 | byte(opText)) // RSV1 set
	buf.WriteByte(0)

	_, err := readFrame(bufio.NewReader(&buf), 65536)
	assert.Error(t, err)
	wsErr, ok := err.(*WebSocketError)
	assert.True(t, ok)
	assert.Equal(t, "ProtocolError", wsErr.Reason)
}

func TestSessionServeEchoesText(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	session := newSession(serverConn, 65536)
	var received []string
	session.OnText = func(text string) error {
		received = append(received, text)
		return session.SendText("echo:" + text)
	}

	done := make(chan struct{})
	go func() {
		session.Serve()
		close(done)
	}()

	go func() {
		writeFrame(clientConn, opText, []byte("ping-text"))
	}()

	clientReader := bufio.NewReader(clientConn)
	f, err := readFrame(clientReader, 65536)
	assert.NoError(t, err)
	assert.Equal(t, "echo:ping-text", string(f.payload))

	// net.Pipe is unbuffered: Close's close frame is only written once
	// the client side reads it.
	go readFrame(clientReader, 65536)
	session.Close(1000, "done")
	<-done

	assert.Equal(t, []string{"ping-text"}, received)
}

package ember

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// reasonPhrases is the closed status-line reason table from spec §4.5.
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	206: "Partial Content",
	302: "Found",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	416: "Range Not Satisfiable",
	500: "Internal Server Error",
}

// reasonPhrase returns the closed-table reason phrase for code, or
// "Unknown Status" outside the table.
func reasonPhrase(code int) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return "Unknown Status"
}

// Response is the builder-style response model from spec §3: mutable
// until `Finalize` runs, after which every setter fails with
// `AlreadyFinalized`.
type Response struct {
	Status      int
	ContentType string
	Headers     Header
	Body        interface{} // string | JSON-marshalable value | []byte

	finalized   bool
	bodyBytes   []byte
	chunked     bool
	maxChunk    int
	headerOrder []string // sorted header names, fixed at Finalize time
}

// NewResponse returns a `Response` with spec §3's defaults: status 200,
// content type text/plain.
func NewResponse() *Response {
	return &Response{
		Status:      200,
		ContentType: "text/plain",
		Headers:     Header{},
	}
}

// reset restores r to `NewResponse`'s defaults for reuse by a
// `ValuePool`, per spec's supplemented object-pooling feature
// (grounded on the teacher's `pool.go`).
func (r *Response) reset() {
	r.Status = 200
	r.ContentType = "text/plain"
	r.Headers = Header{}
	r.Body = nil
	r.finalized = false
	r.bodyBytes = nil
	r.chunked = false
	r.maxChunk = 0
	r.headerOrder = nil
}

// SetStatus sets the status code. Fails with `AlreadyFinalized` once the
// response has been finalized.
func (r *Response) SetStatus(code int) error {
	if r.finalized {
		return newLifecycleError("AlreadyFinalized", "SetStatus")
	}
	r.Status = code
	return nil
}

// SetContentType sets the content type used to dispatch body
// serialization at finalize time.
func (r *Response) SetContentType(ct string) error {
	if r.finalized {
		return newLifecycleError("AlreadyFinalized", "SetContentType")
	}
	r.ContentType = ct
	return nil
}

// SetHeader sets a response header.
func (r *Response) SetHeader(name, value string) error {
	if r.finalized {
		return newLifecycleError("AlreadyFinalized", "SetHeader")
	}
	if r.Headers == nil {
		r.Headers = Header{}
	}
	r.Headers.Set(name, value)
	return nil
}

// Write assigns the response body (string, []byte, or an arbitrary
// value serialized per content type at finalize time).
func (r *Response) Write(body interface{}) error {
	if r.finalized {
		return newLifecycleError("AlreadyFinalized", "Write")
	}
	r.Body = body
	return nil
}

// Finalized reports whether Finalize has already run.
func (r *Response) Finalized() bool { return r.finalized }

// isTextualContentType reports whether ct is one of the textual content
// types from spec §4.5 that accept a string body.
func isTextualContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	switch ct {
	case "application/javascript", "application/x-www-form-urlencoded",
		"multipart/form-data", "application/xml":
		return true
	}
	return strings.HasPrefix(ct, "text/")
}

// isBinaryContentType reports whether ct is one of the binary media
// types from spec §4.5 that accept raw bytes.
func isBinaryContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	switch {
	case ct == "application/octet-stream", ct == "application/pdf":
		return true
	case strings.HasPrefix(ct, "image/"), strings.HasPrefix(ct, "video/"), strings.HasPrefix(ct, "audio/"):
		return true
	}
	return false
}

// serializeBody dispatches on content type per spec §4.5, producing the
// final body byte sequence.
func serializeBody(contentType string, body interface{}) ([]byte, error) {
	if body == nil {
		return []byte{}, nil
	}

	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))

	switch {
	case base == "application/json":
		switch v := body.(type) {
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, newLifecycleError("UnsupportedBody", err.Error())
			}
			return b, nil
		}

	case isTextualContentType(base):
		switch v := body.(type) {
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		case fmt.Stringer:
			return []byte(v.String()), nil
		default:
			return nil, newLifecycleError("UnsupportedBody", fmt.Sprintf("%T is not a string for %s", body, contentType))
		}

	case isBinaryContentType(base):
		switch v := body.(type) {
		case []byte:
			return v, nil
		default:
			return nil, newLifecycleError("UnsupportedBody", fmt.Sprintf("%T is not []byte for %s", body, contentType))
		}

	default:
		switch v := body.(type) {
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		case fmt.Stringer:
			return []byte(v.String()), nil
		default:
			return nil, newLifecycleError("UnsupportedBody", fmt.Sprintf("unrecognized content type %q for %T", contentType, body))
		}
	}
}

// Finalize computes the body bytes and headers, per spec §4.5. It is
// idempotent: a second call is a no-op and returns nil. chunkedThreshold
// and maxChunkBytes come from the `Config` (defaults 1 MiB / 64 KiB).
func (r *Response) Finalize(chunkedThreshold, maxChunkBytes int) error {
	if r.finalized {
		return nil
	}

	bodyBytes, err := serializeBody(r.ContentType, r.Body)
	if err != nil {
		return err
	}
	r.bodyBytes = bodyBytes

	if r.Headers == nil {
		r.Headers = Header{}
	}
	if r.ContentType == "" {
		r.ContentType = "text/plain"
	}
	if !r.Headers.Contains("Content-Type") {
		r.Headers.Set("Content-Type", r.ContentType)
	}

	if chunkedThreshold <= 0 {
		chunkedThreshold = 1 << 20
	}
	if maxChunkBytes <= 0 {
		maxChunkBytes = 64 << 10
	}

	if len(bodyBytes) > chunkedThreshold {
		r.chunked = true
		r.maxChunk = maxChunkBytes
		r.Headers.Set("Transfer-Encoding", "chunked")
	} else {
		r.Headers.Set("Content-Length", strconv.Itoa(len(bodyBytes)))
	}

	order := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		order = append(order, name)
	}
	sort.Strings(order)
	r.headerOrder = order

	r.finalized = true
	return nil
}

// Serialize renders the full HTTP/1.1 response (status line, headers,
// blank line, body) after Finalize has run. Calling it twice on a
// finalized response produces byte-identical output, since body and
// headers were fixed once at finalize time.
func (r *Response) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.Status))
	buf.WriteByte(' ')
	buf.WriteString(reasonPhrase(r.Status))
	buf.WriteString("\r\n")

	for _, name := range r.headerOrder {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(r.Headers[name])
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	if r.chunked {
		buf.Write(encodeChunked(r.bodyBytes, r.maxChunk))
	} else {
		buf.Write(r.bodyBytes)
	}
	return buf.Bytes()
}

// IsChunked reports whether Finalize selected chunked transfer encoding.
func (r *Response) IsChunked() bool { return r.chunked }

// BodyBytes returns the finalized body, before chunk framing.
func (r *Response) BodyBytes() []byte { return r.bodyBytes }

// encodeChunked frames body as a sequence of `<hex-size>\r\n<bytes>\r\n`
// chunks no larger than maxChunk, terminated by `0\r\n\r\n`, per spec
// §4.5's chunked path.
func encodeChunked(body []byte, maxChunk int) []byte {
	if maxChunk <= 0 {
		maxChunk = 64 << 10
	}

	var buf bytes.Buffer
	for len(body) > 0 {
		n := maxChunk
		if n > len(body) {
			n = len(body)
		}
		chunk := body[:n]
		body = body[n:]

		buf.WriteString(strconv.FormatInt(int64(len(chunk)), 16))
		buf.WriteString("\r\n")
		buf.Write(chunk)
		buf.WriteString("\r\n")
	}
	buf.WriteString("0\r\n\r\n")
	return buf.Bytes()
}

// decodeChunked reverses encodeChunked; used by tests.
func decodeChunked(framed []byte) ([]byte, error) {
	var out bytes.Buffer
	for {
		idx := bytes.Index(framed, []byte("\r\n"))
		if idx < 0 {
			return nil, newParseError("Malformed", "missing chunk size line")
		}
		sizeLine := string(framed[:idx])
		if semi := strings.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			return nil, newParseError("Malformed", "invalid chunk size")
		}
		framed = framed[idx+2:]

		if size == 0 {
			return out.Bytes(), nil
		}
		if int64(len(framed)) < size+2 {
			return nil, newParseError("Malformed", "truncated chunk")
		}
		out.Write(framed[:size])
		framed = framed[size+2:] // skip chunk data + trailing CRLF
	}
}

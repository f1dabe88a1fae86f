package ember

import (
	"strconv"
	"strings"
)

// Header is a case-sensitive header mapping with last-write-wins
// semantics on duplicate names, per spec §3.
type Header map[string]string

// Get returns the value of name, or "" if absent.
func (h Header) Get(name string) string { return h[name] }

// Set assigns value to name, overwriting any previous value.
func (h Header) Set(name, value string) { h[name] = value }

// Contains reports whether name was set (even to an empty value).
func (h Header) Contains(name string) bool {
	_, ok := h[name]
	return ok
}

// Request is an immutable view of a parsed HTTP request, constructed
// once by the dispatcher and never mutated afterward, per spec §3.
type Request struct {
	Method        string
	Path          string // query stripped
	RawTarget     string
	Version       string
	Headers       Header
	QueryParams   map[string][]string // ordered sequence of values per name
	RouteParams   map[string]string
	Body          []byte
	ContentLength int
	ClientAddr    string

	multipartOnce   bool
	multipartFields map[string]string
	multipartFiles  map[string]*UploadedFile
	multipartErr    error

	jsonOnce   bool
	jsonFields map[string]interface{}
	jsonErr    error
}

// reset clears r for reuse by a `ValuePool`, per spec's supplemented
// object-pooling feature (grounded on the teacher's `pool.go`).
func (r *Request) reset() {
	*r = Request{}
}

// Param returns the value of a route parameter bound during resolution,
// or "" if name was not bound.
func (r *Request) Param(name string) string { return r.RouteParams[name] }

// QueryValue returns the first query value for name, or "" if absent.
func (r *Request) QueryValue(name string) string {
	if vs := r.QueryParams[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// QueryValues returns the ordered sequence of query values for name.
func (r *Request) QueryValues(name string) []string {
	return r.QueryParams[name]
}

// BodyString returns the body as a UTF-8 decoded string view.
func (r *Request) BodyString() string { return string(r.Body) }

// jsonBody lazily parses the body as a JSON object, per spec §4.7.
func (r *Request) jsonBody() (map[string]interface{}, error) {
	if !r.jsonOnce {
		r.jsonOnce = true
		r.jsonFields, r.jsonErr = decodeJSONObject(r.Body)
	}
	return r.jsonFields, r.jsonErr
}

// multipartBody lazily parses the body with the `MultipartParser`, per
// spec §4.7 ("obtained by re-parsing the multipart body").
func (r *Request) multipartBody() (map[string]string, map[string]*UploadedFile, error) {
	if !r.multipartOnce {
		r.multipartOnce = true
		r.multipartFields, r.multipartFiles, r.multipartErr = parseMultipart(
			r.Headers.Get("Content-Type"),
			r.Body,
		)
	}
	return r.multipartFields, r.multipartFiles, r.multipartErr
}

// requestComplete is the "Request complete" test from spec §4.4: it's
// used by the `ConnectionLoop` before attempting to parse, so that a
// partial read is never handed to `parseRequest`.
func requestComplete(buf []byte) bool {
	s := string(buf)
	sep := "\r\n\r\n"
	idx := strings.Index(s, sep)
	if idx < 0 {
		sep = "\n\n"
		idx = strings.Index(s, sep)
		if idx < 0 {
			return false
		}
	}

	head := s[:idx]
	cl := contentLengthOf(head)
	if cl < 0 {
		return true
	}

	bodyStart := idx + len(sep)
	return len(buf)-bodyStart >= cl
}

// contentLengthOf scans raw header text for a Content-Length header,
// returning -1 if absent.
func contentLengthOf(head string) int {
	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimRight(line, "\r")
		if i := strings.Index(line, ":"); i > 0 {
			name := strings.TrimSpace(line[:i])
			if strings.EqualFold(name, "Content-Length") {
				if n, err := strconv.Atoi(strings.TrimSpace(line[i+1:])); err == nil {
					return n
				}
			}
		}
	}
	return -1
}

// parseRequest parses a fully-buffered HTTP request, per spec §4.4.
func parseRequest(raw []byte, clientAddr string) (*Request, error) {
	req := &Request{}
	if err := parseRequestInto(req, raw, clientAddr); err != nil {
		return nil, err
	}
	return req, nil
}

// parseRequestInto parses raw into req, which must be freshly reset
// (e.g. just taken from a `ValuePool`), avoiding a `Request` allocation
// per request on the hot path.
func parseRequestInto(req *Request, raw []byte, clientAddr string) error {
	s := string(raw)

	sep := "\r\n\r\n"
	idx := strings.Index(s, sep)
	if idx < 0 {
		sep = "\n\n"
		idx = strings.Index(s, sep)
	}

	var head, body string
	if idx < 0 {
		head, body = s, ""
	} else {
		head, body = s[:idx], s[idx+len(sep):]
	}

	lines := splitLines(head)
	if len(lines) == 0 || lines[0] == "" {
		return newParseError("Malformed", "empty request")
	}

	requestLine := strings.Fields(lines[0])
	if len(requestLine) != 3 {
		return newParseError("Malformed", "request line must be METHOD SP TARGET SP VERSION")
	}

	method, target, version := requestLine[0], requestLine[1], requestLine[2]
	if !isSupportedMethod(method) {
		return newParseError("UnsupportedMethod", method)
	}

	path, query := target, ""
	if i := strings.Index(target, "?"); i >= 0 {
		path, query = target[:i], target[i+1:]
	}

	headers := Header{}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		i := strings.Index(line, ": ")
		if i < 0 {
			continue // malformed lines are skipped, per spec §4.4
		}
		headers.Set(line[:i], line[i+2:])
	}

	queryParams := parseQueryString(query)

	bodyBytes := []byte(body)
	if cl := contentLengthOf(head); cl >= 0 && cl <= len(bodyBytes) {
		bodyBytes = bodyBytes[:cl]
	}

	req.Method = method
	req.Path = path
	req.RawTarget = target
	req.Version = version
	req.Headers = headers
	req.QueryParams = queryParams
	req.RouteParams = map[string]string{}
	req.Body = bodyBytes
	req.ContentLength = len(bodyBytes)
	req.ClientAddr = clientAddr
	return nil
}

// splitLines splits head on either CRLF or LF, per spec §6 ("accepts
// CRLF or LF line endings in headers").
func splitLines(head string) []string {
	head = strings.ReplaceAll(head, "\r\n", "\n")
	return strings.Split(head, "\n")
}

// parseQueryString parses a query string into an ordered-per-name value
// map, per spec §4.4.
func parseQueryString(query string) map[string][]string {
	params := map[string][]string{}
	if query == "" {
		return params
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		i := strings.Index(pair, "=")
		if i < 0 {
			continue // missing "=" is ignored, per spec §4.4
		}
		name, value := unescape(pair[:i]), unescape(pair[i+1:])
		params[name] = append(params[name], value)
	}
	return params
}

var supportedMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "CONNECT": true, "OPTIONS": true, "TRACE": true,
}

func isSupportedMethod(m string) bool { return supportedMethods[m] }

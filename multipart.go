package ember

import (
	"strings"
)

// UploadedFile is a file extracted from a multipart body: its declared
// filename and the raw bytes that followed its part header, per spec
// §4.6.
type UploadedFile struct {
	Filename string
	Content  []byte
}

// parseMultipart extracts text fields and uploaded files from a
// multipart/form-data body, per spec §4.6. contentType must carry a
// `boundary=` parameter; its absence fails with `MalformedMultipart`.
func parseMultipart(contentType string, body []byte) (map[string]string, map[string]*UploadedFile, error) {
	boundary := multipartBoundary(contentType)
	if boundary == "" {
		return nil, nil, newParseError("MalformedMultipart", "missing boundary")
	}

	fields := map[string]string{}
	files := map[string]*UploadedFile{}

	delim := "--" + boundary
	parts := strings.Split(string(body), delim)

	for _, part := range parts {
		part = strings.TrimPrefix(part, "\r\n")
		part = strings.TrimSuffix(part, "\r\n")
		if part == "" || part == "--" {
			continue // boundary preamble/epilogue or the trailing terminator
		}

		sep := "\r\n\r\n"
		idx := strings.Index(part, sep)
		if idx < 0 {
			sep = "\n\n"
			idx = strings.Index(part, sep)
			if idx < 0 {
				continue
			}
		}

		head, partBody := part[:idx], part[idx+len(sep):]
		name, filename, ok := parseContentDisposition(head)
		if !ok {
			continue
		}

		if filename != "" {
			files[name] = &UploadedFile{Filename: filename, Content: []byte(partBody)}
		} else {
			fields[name] = partBody
		}
	}

	return fields, files, nil
}

// multipartBoundary extracts the `boundary=` parameter from a
// multipart/form-data Content-Type header value.
func multipartBoundary(contentType string) string {
	for _, param := range strings.Split(contentType, ";") {
		param = strings.TrimSpace(param)
		if strings.HasPrefix(param, "boundary=") {
			b := strings.TrimPrefix(param, "boundary=")
			return strings.Trim(b, `"`)
		}
	}
	return ""
}

// parseContentDisposition reads the `name` and, if present, `filename`
// parameters off a part's `Content-Disposition: form-data` header line.
func parseContentDisposition(head string) (name, filename string, ok bool) {
	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimRight(line, "\r")
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(line[:i]), "Content-Disposition") {
			continue
		}
		value := line[i+1:]
		if !strings.Contains(value, "form-data") {
			return "", "", false
		}
		name = multipartParam(value, "name")
		filename = multipartParam(value, "filename")
		return name, filename, name != ""
	}
	return "", "", false
}

// multipartParam extracts a `key="value"` parameter from a
// Content-Disposition header value.
func multipartParam(value, key string) string {
	marker := key + `="`
	i := strings.Index(value, marker)
	if i < 0 {
		return ""
	}
	rest := value[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

package ember

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// decodeJSONObject parses body as a JSON object, used both by
// `Request.jsonBody` and `ExpectedInputs`.
func decodeJSONObject(body []byte) (map[string]interface{}, error) {
	if len(body) == 0 {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// InputKind distinguishes the three declaration kinds from spec §4.7.
type InputKind uint8

const (
	InputQueryParam InputKind = iota
	InputJSONField
	InputFile
)

type inputSpec struct {
	kind InputKind
	name string
}

// ExpectedInputs lets a handler declare its inputs during
// initialization; the dispatcher pre-touches every declaration before
// `Handle` runs, so validation failures surface before handler code
// does, per spec §4.7 and §4.10 step 7.
type ExpectedInputs struct {
	req   *Request
	specs []inputSpec
}

// Query declares a required query parameter.
func (e *ExpectedInputs) Query(name string) *ExpectedInputs {
	e.specs = append(e.specs, inputSpec{InputQueryParam, name})
	return e
}

// JSONField declares a required JSON body field.
func (e *ExpectedInputs) JSONField(name string) *ExpectedInputs {
	e.specs = append(e.specs, inputSpec{InputJSONField, name})
	return e
}

// File declares a required uploaded file.
func (e *ExpectedInputs) File(name string) *ExpectedInputs {
	e.specs = append(e.specs, inputSpec{InputFile, name})
	return e
}

// bind attaches the current request so accessors can resolve values.
func (e *ExpectedInputs) bind(req *Request) { e.req = req }

// Touch validates every declared input is present, in declaration
// order, returning the first failure.
func (e *ExpectedInputs) Touch() error {
	for _, s := range e.specs {
		switch s.kind {
		case InputQueryParam:
			if len(e.req.QueryValues(s.name)) == 0 {
				return newValidationError("MissingParameter", s.name)
			}
		case InputJSONField:
			fields, err := e.req.jsonBody()
			if err != nil {
				return newValidationError("MissingField", s.name)
			}
			if _, ok := fields[s.name]; !ok {
				return newValidationError("MissingField", s.name)
			}
		case InputFile:
			_, files, err := e.req.multipartBody()
			if err != nil {
				return newValidationError("MissingFile", s.name)
			}
			if _, ok := files[s.name]; !ok {
				return newValidationError("MissingFile", s.name)
			}
		}
	}
	return nil
}

// specKind looks up which kind name was declared as.
func (e *ExpectedInputs) specKind(name string) (InputKind, bool) {
	for _, s := range e.specs {
		if s.name == name {
			return s.kind, true
		}
	}
	return 0, false
}

// rawString resolves a declared query parameter or JSON field to its
// string form, for use by the typed accessors below.
func (e *ExpectedInputs) rawString(name string) (string, error) {
	kind, ok := e.specKind(name)
	if !ok {
		return "", newValidationError("MissingParameter", name)
	}

	switch kind {
	case InputQueryParam:
		v := e.req.QueryValue(name)
		if v == "" && len(e.req.QueryValues(name)) == 0 {
			return "", newValidationError("MissingParameter", name)
		}
		return v, nil
	case InputJSONField:
		fields, err := e.req.jsonBody()
		if err != nil {
			return "", newValidationError("MissingField", name)
		}
		v, ok := fields[name]
		if !ok {
			return "", newValidationError("MissingField", name)
		}
		return fmt.Sprint(v), nil
	default:
		return "", newValidationError("TypeMismatch", name)
	}
}

// String returns the declared input's raw string value.
func (e *ExpectedInputs) String(name string) (string, error) { return e.rawString(name) }

// Int parses the declared input as an int.
func (e *ExpectedInputs) Int(name string) (int, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return n, nil
}

// Long parses the declared input as an int64.
func (e *ExpectedInputs) Long(name string) (int64, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return n, nil
}

// Short parses the declared input as an int16.
func (e *ExpectedInputs) Short(name string) (int16, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return int16(n), nil
}

// Byte parses the declared input as a single byte.
func (e *ExpectedInputs) Byte(name string) (byte, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return byte(n), nil
}

// Double parses the declared input as a float64.
func (e *ExpectedInputs) Double(name string) (float64, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return f, nil
}

// Float parses the declared input as a float32.
func (e *ExpectedInputs) Float(name string) (float32, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, newValidationError("TypeMismatch", name)
	}
	return float32(f), nil
}

// Boolean parses the declared input as a bool.
func (e *ExpectedInputs) Boolean(name string) (bool, error) {
	s, err := e.rawString(name)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, newValidationError("TypeMismatch", name)
	}
	return b, nil
}

// Char returns the first rune of the declared input, failing unless it
// is exactly one rune long.
func (e *ExpectedInputs) Char(name string) (rune, error) {
	s, err := e.rawString(name)
	if err != nil {
		return 0, err
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, newValidationError("TypeMismatch", name)
	}
	return runes[0], nil
}

// JSONObject returns a declared JSON field's value as a nested object.
func (e *ExpectedInputs) JSONObject(name string) (map[string]interface{}, error) {
	fields, err := e.req.jsonBody()
	if err != nil {
		return nil, newValidationError("MissingField", name)
	}
	v, ok := fields[name]
	if !ok {
		return nil, newValidationError("MissingField", name)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, newValidationError("TypeMismatch", name)
	}
	return obj, nil
}

// FileValue returns the declared uploaded file.
func (e *ExpectedInputs) FileValue(name string) (*UploadedFile, error) {
	kind, ok := e.specKind(name)
	if !ok || kind != InputFile {
		return nil, newValidationError("MissingFile", name)
	}
	_, files, err := e.req.multipartBody()
	if err != nil {
		return nil, newValidationError("MissingFile", name)
	}
	f, ok := files[name]
	if !ok {
		return nil, newValidationError("MissingFile", name)
	}
	return f, nil
}

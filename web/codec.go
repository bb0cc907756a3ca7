package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/pipeline"
)

// ContentType of every written document.
const ContentType = "application/json"

// parseID converts a path segment to the value kind of the ID node.
func parseID(n *restpf.Node, s string) (any, error) {
	switch n.Kind() {
	case restpf.KindInteger:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q is not an integer", s)
		}
		return v, nil
	case restpf.KindFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q is not a number", s)
		}
		return v, nil
	case restpf.KindBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("id %q is not a boolean", s)
		}
		return v, nil
	}
	return s, nil
}

type body struct {
	Data          *body `json:"data"`
	Attributes    any   `json:"attributes"`
	Relationships any   `json:"relationships"`
}

// decodeRequest fills the query, headers, raw body and collections of raw.
// The body is either {"data": {"attributes": ..., "relationships": ...}} or
// the bare inner object; an empty body leaves the collections nil.
func decodeRequest(r *http.Request, limit int64, raw *pipeline.Raw) error {
	raw.Query = r.URL.Query()
	raw.Headers = r.Header
	if r.Body == nil {
		return nil
	}
	var src io.Reader = r.Body
	if limit > 0 {
		src = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("body exceeds %d bytes", limit)
	}
	raw.Body = data
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	iss, err := restpf.DetectDuplicateKeys(data)
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if len(iss) > 0 {
		return iss
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var b body
	if err := dec.Decode(&b); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	if b.Data != nil {
		b = *b.Data
	}
	raw.Attributes = b.Attributes
	raw.Relationships = b.Relationships
	return nil
}

func writeDocument(w http.ResponseWriter, status int, doc pipeline.Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": doc})
}

// bodyErrors describes a rejected request body. Duplicate keys get one
// entry per key pointing into the body.
func bodyErrors(err error) []apiError {
	if iss, ok := restpf.AsIssues(err); ok {
		out := make([]apiError, 0, len(iss))
		for _, it := range iss {
			out = append(out, apiError{
				Status: http.StatusBadRequest,
				Code:   it.Code,
				Title:  "Malformed request body",
				Detail: it.Message,
				Source: &errorSource{Pointer: it.Path},
			})
		}
		return out
	}
	return []apiError{{
		Status: http.StatusBadRequest,
		Code:   restpf.CodeParseError,
		Title:  "Malformed request body",
		Detail: err.Error(),
	}}
}

// apiError is one entry of an error document.
type apiError struct {
	Status int          `json:"status,string"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *errorSource `json:"source,omitempty"`
}

type errorSource struct {
	Pointer string `json:"pointer,omitempty"`
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": errs})
}

// errorResponse maps a pipeline error to a status and error entries.
// Validation failures of the request are 422 with one entry per issue;
// everything else is a server side failure.
func errorResponse(err error) (int, []apiError) {
	var verrs []*restpf.ValidationError
	collectValidation(err, &verrs)
	if len(verrs) > 0 {
		status := http.StatusUnprocessableEntity
		if verrs[0].Stage == "output" {
			status = http.StatusInternalServerError
		}
		var out []apiError
		for _, ve := range verrs {
			for _, it := range ve.Issues {
				out = append(out, apiError{
					Status: status,
					Code:   it.Code,
					Title:  "Invalid " + ve.Collection,
					Detail: it.Message,
					Source: &errorSource{Pointer: pointerFor(ve.Collection, it.Path)},
				})
			}
		}
		return status, out
	}

	code := "internal_error"
	switch {
	case errors.Is(err, restpf.ErrScheduling):
		code = "scheduling_error"
	case errors.Is(err, restpf.ErrCallback):
		code = "callback_error"
	}
	return http.StatusInternalServerError, []apiError{{
		Status: http.StatusInternalServerError,
		Code:   code,
		Title:  "Internal server error",
		Detail: err.Error(),
	}}
}

// collectValidation gathers every *restpf.ValidationError in the tree of
// err, following joined errors.
func collectValidation(err error, out *[]*restpf.ValidationError) {
	if err == nil {
		return
	}
	if ve, ok := err.(*restpf.ValidationError); ok {
		*out = append(*out, ve)
		return
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			collectValidation(e, out)
		}
	case interface{ Unwrap() error }:
		collectValidation(u.Unwrap(), out)
	}
}

func pointerFor(collection, path string) string {
	if collection == pipeline.SlotResourceID {
		return "/data/id"
	}
	if path == "/" {
		path = ""
	}
	return "/data/" + collection + path
}

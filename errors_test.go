package restpf_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	restpf "github.com/guxiaodai/restpf"
)

func TestIssues_ErrorSummary(t *testing.T) {
	iss := restpf.Issues{
		{Path: "/a", Code: restpf.CodeInvalidType},
		{Path: "/b", Code: restpf.CodeUnknownKey},
		{Path: "/c", Code: restpf.CodeRequired},
		{Path: "/d", Code: restpf.CodeProhibited},
	}
	s := iss.Error()
	if !strings.HasPrefix(s, "invalid_type at /a; unknown_key at /b; required at /c") {
		t.Fatalf("unexpected summary %q", s)
	}
	if !strings.Contains(s, "total 4") {
		t.Fatalf("summary should mention the total: %q", s)
	}
}

func TestAsIssues_ThroughWrapping(t *testing.T) {
	base := restpf.Issues{{Path: "/", Code: restpf.CodeRequired}}
	err := fmt.Errorf("input: %w", &restpf.ValidationError{Stage: "input", Collection: "attributes", Issues: base})
	iss, ok := restpf.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != restpf.CodeRequired {
		t.Fatalf("AsIssues failed: %v %v", iss, ok)
	}
	if !errors.Is(err, restpf.ErrValidation) {
		t.Fatalf("expected ErrValidation")
	}
	if _, ok := restpf.AsIssues(nil); ok {
		t.Fatalf("nil error must not yield issues")
	}
}

func TestTypedErrors_Is(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		err    error
		target error
	}{
		{&restpf.SchemaError{Reason: "x"}, restpf.ErrSchema},
		{&restpf.SchedulingError{Collection: "attributes", Method: restpf.GET, Err: cause}, restpf.ErrScheduling},
		{&restpf.CallbackError{Name: "foo", Err: cause}, restpf.ErrCallback},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.target) {
			t.Fatalf("%T should match %v", c.err, c.target)
		}
	}
	if !errors.Is(&restpf.CallbackError{Name: "foo", Err: cause}, cause) {
		t.Fatalf("CallbackError should unwrap to its cause")
	}
}

func TestRefOf_EscapesPointer(t *testing.T) {
	p := restpf.RefOf([]string{"a/b", "c~d"}).Index(2)
	if got := p.Pointer(); got != "/a~1b/c~0d/2" {
		t.Fatalf("pointer = %q", got)
	}
	it := p.Issue(restpf.CodeInvalidType, "expected", "integer")
	if it.Hint != "integer" || it.Message == "" || it.Params["expected"] != "integer" {
		t.Fatalf("unexpected issue %+v", it)
	}
}

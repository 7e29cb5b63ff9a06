package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type chainError struct {
	msg   string
	cause error
}

func (e *chainError) Error() string { return e.msg }
func (e *chainError) Unwrap() error { return e.cause }

func chain(msgs ...string) error {
	var err error
	for i := len(msgs) - 1; i >= 0; i-- {
		err = &chainError{msg: msgs[i], cause: err}
	}
	return err
}

func TestBuild(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"single", errors.New("boom"), "boom"},
		{"leading duplicates collapse", chain("boom", "boom", "deep issue"), "boom\nCaused by: deep issue"},
		{"only duplicates", chain("boom", "boom"), "boom"},
		{"later duplicates kept", chain("a", "b", "b"), "a\nCaused by: b\nCaused by: b"},
		{"empty cause skipped", chain("top", "", "bottom"), "top\nCaused by: bottom"},
		{"wrapped suffix trimmed", fmt.Errorf("load: %w", fmt.Errorf("open: %w", errors.New("denied"))), "load\nCaused by: open\nCaused by: denied"},
		{"dial failure", fmt.Errorf("fetch: %w", dial), "fetch\nCaused by: " + ConnectionFailureMessage + "\nCaused by: connection refused"},
		{"grpc unavailable", status.Error(codes.Unavailable, "transport is closing"), ConnectionFailureMessage},
		{"grpc other code", status.Error(codes.NotFound, "missing"), "rpc error: code = NotFound desc = missing"},
		{"refused errno", syscall.ECONNREFUSED, ConnectionFailureMessage},
		{"connection failure deduped", &chainError{msg: ConnectionFailureMessage, cause: status.Error(codes.Unavailable, "x")}, ConnectionFailureMessage},
		{"joined causes", fmt.Errorf("batch: %w", errors.Join(errors.New("first"), errors.New("second"))), "batch\nCaused by: first\nCaused by: second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBuildWrapsLongCauses(t *testing.T) {
	cause := strings.Repeat("word ", 30) + strings.Repeat("x", 100)
	got := Build(chain("top", cause))

	lines := strings.Split(got, "\n")
	if lines[0] != "top" {
		t.Fatalf("expected headline 'top', got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Caused by: word") {
		t.Errorf("expected cause prefix, got %q", lines[1])
	}
	for i, line := range lines[1:] {
		if i > 0 && !strings.HasPrefix(line, "\t") {
			t.Errorf("continuation line %d not indented: %q", i, line)
		}
		if n := len(strings.TrimPrefix(line, "\t")); n > 80 {
			t.Errorf("line %d is %d columns: %q", i, n, line)
		}
	}
	if strings.ReplaceAll(strings.Join(lines[1:], ""), "\t", "") == "" {
		t.Error("expected wrapped content")
	}
}

func TestMessagesStopsOnCycle(t *testing.T) {
	a := &chainError{msg: "a"}
	b := &chainError{msg: "b", cause: a}
	a.cause = b

	got := Messages(a)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

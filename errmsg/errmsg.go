// Package errmsg renders an error chain as a multi-line message for people:
// the outermost message first, then one "Caused by: " line per cause.
package errmsg

import (
	"net"
	"reflect"
	"strings"
	"syscall"

	"github.com/mitchellh/go-wordwrap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConnectionFailureMessage replaces the message of any connectivity failure in a chain.
const ConnectionFailureMessage = "Could not connect to the server."

const (
	causePrefix  = "Caused by: "
	wrapWidth    = 80
	wrapNewline  = "\n\t"
	maxChainSize = 64
)

// Build returns the message of err followed by the messages of its causes.
//
// Connectivity failures render as ConnectionFailureMessage. Leading
// repeats of the same message collapse into one. Empty cause messages are
// skipped, and each remaining cause is prefixed with "Caused by: " and
// wrapped at 80 columns with a tab-indented continuation.
func Build(err error) string {
	if err == nil {
		return ""
	}

	messages := Messages(err)
	for len(messages) > 1 && messages[0] == messages[1] {
		messages = messages[1:]
	}

	var sb strings.Builder
	sb.WriteString(messages[0])
	for _, cause := range messages[1:] {
		if cause == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(wrap(causePrefix + cause))
	}
	return sb.String()
}

// Messages returns one message per error in the chain, outermost first.
// Errors with several causes (errors.Join, fmt.Errorf with several %w)
// contribute their causes depth-first in order. A message that ends with
// ": " plus its cause's message is shortened to its own part.
func Messages(err error) []string {
	var out []string
	seen := make(map[error]bool)
	var visit func(e error)
	visit = func(e error) {
		if e == nil || len(out) >= maxChainSize {
			return
		}
		if reflect.TypeOf(e).Comparable() {
			if seen[e] {
				return
			}
			seen[e] = true
		}

		causes := unwrap(e)
		out = append(out, message(e, causes))
		for _, c := range causes {
			visit(c)
		}
	}
	visit(err)
	return out
}

func unwrap(e error) []error {
	switch u := e.(type) {
	case interface{ Unwrap() error }:
		if c := u.Unwrap(); c != nil {
			return []error{c}
		}
	case interface{ Unwrap() []error }:
		return u.Unwrap()
	}
	return nil
}

func message(e error, causes []error) string {
	if IsConnectionFailure(e) {
		return ConnectionFailureMessage
	}

	msg := e.Error()
	switch len(causes) {
	case 0:
		return msg
	case 1:
		if own, ok := strings.CutSuffix(msg, ": "+causes[0].Error()); ok {
			return own
		}
		return msg
	}

	parts := make([]string, 0, len(causes))
	for _, c := range causes {
		parts = append(parts, c.Error())
	}
	if msg == strings.Join(parts, "\n") {
		return ""
	}
	return msg
}

// IsConnectionFailure reports whether e itself, not its causes, signals
// that a remote endpoint could not be reached: a refused or failed dial,
// or a gRPC Unavailable status.
func IsConnectionFailure(e error) bool {
	if errno, ok := e.(syscall.Errno); ok {
		return errno == syscall.ECONNREFUSED
	}
	if op, ok := e.(*net.OpError); ok {
		return op.Op == "dial"
	}
	if s, ok := e.(interface{ GRPCStatus() *status.Status }); ok {
		return s.GRPCStatus().Code() == codes.Unavailable
	}
	return false
}

// wrap wraps s at whitespace and breaks words longer than the line width.
func wrap(s string) string {
	lines := strings.Split(wordwrap.WrapString(s, wrapWidth), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for len([]rune(line)) > wrapWidth {
			r := []rune(line)
			out = append(out, string(r[:wrapWidth]))
			line = strings.TrimLeft(string(r[wrapWidth:]), " ")
		}
		out = append(out, line)
	}
	return strings.Join(out, wrapNewline)
}

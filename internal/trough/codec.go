package trough

import (
	"fmt"
	"strings"
)

// parseResponse splits a raw response line into its body fields.
// The line must contain a ':' and the portion before it must start with
// "OK"; anything else is a ProtocolError carrying the line verbatim.
// The body is split on whitespace with empty tokens discarded.
func parseResponse(line string) ([]string, error) {
	head, body, found := strings.Cut(line, ":")
	if !found || !strings.HasPrefix(head, "OK") {
		return nil, &ProtocolError{Line: line}
	}
	return strings.Fields(body), nil
}

// coerceFields maps raw body fields through Coerce, preserving order.
func coerceFields(raw []string) Fields {
	fields := make(Fields, len(raw))
	for i, f := range raw {
		fields[i] = Coerce(f)
	}
	return fields
}

func encodeCall(method string, args []string) string {
	if len(args) == 0 {
		return "call : " + method + "\n"
	}
	return "call : " + method + " " + strings.Join(args, " ") + "\n"
}

func encodeGet(prop string) string {
	return "get : " + prop + "\n"
}

func encodeSet(prop, value string) string {
	return "set : " + prop + " " + value + "\n"
}

func encodeCtrl(name, value string) string {
	return "ctrl : " + name + " " + value + "\n"
}

// formatArg renders one outbound command argument. Values render in
// their canonical form; everything else goes through fmt.
func formatArg(arg any) string {
	switch v := arg.(type) {
	case Value:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func formatArgs(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = formatArg(a)
	}
	return out
}

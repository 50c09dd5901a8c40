package trough

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/troughctl/internal/testutil/testlog"
)

// respondWith maps the method/property token of each request line to a
// canned response, so one connection can serve a scripted conversation.
func respondWith(script map[string]string) func(line string) string {
	return func(line string) string {
		for token, resp := range script {
			if strings.Contains(line, token) {
				return resp
			}
		}
		return "OK:\n"
	}
}

func TestCallResultShaping(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name     string
		method   string
		response string
		want     Fields
	}{
		{
			name:     "drain keeps leading count",
			method:   "GetData",
			response: "OK: 2 1 2 3\n",
			want:     Fields{Int(2), Int(1), Int(2), Int(3)},
		},
		{
			name:     "identification keeps leading field",
			method:   "DeviceIdentification",
			response: "OK: 0 MicroTroughXS 1.2\n",
			want:     Fields{Int(0), Text("MicroTroughXS"), Real(1.2)},
		},
		{
			name:     "empty stays empty",
			method:   "StopMeasure",
			response: "OK:\n",
			want:     Fields{},
		},
		{
			name:     "single value returned as-is",
			method:   "GetMaxBarrierSpeed",
			response: "OK: 85.0\n",
			want:     Fields{Real(85.0)},
		},
		{
			name:     "two fields drop the status code",
			method:   "Foo",
			response: "OK: 5 9\n",
			want:     Fields{Int(9)},
		},
		{
			name:     "many fields drop the status code",
			method:   "Bar",
			response: "OK: 1 2 3 4\n",
			want:     Fields{Int(2), Int(3), Int(4)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := startFakeServer(t, func(string) string { return tc.response })
			client := dialFake(t, server)

			got, err := client.Call(tc.method)
			if err != nil {
				t.Fatalf("call %s: %v", tc.method, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d fields (%s), want %d (%s)", len(got), got, len(tc.want), tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("field %d: got %v (%s), want %v (%s)", i, got[i], got[i].Kind(), tc.want[i], tc.want[i].Kind())
				}
			}
		})
	}
}

func TestCallWireFormat(t *testing.T) {
	testlog.Start(t)

	server := startFakeServer(t, nil)
	client := dialFake(t, server)

	if _, err := client.Call("SetBarrierSpeed", 85.0, true, "fast"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := client.Call("StepRelax"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := client.Get("CurrentSpeed"); err == nil {
		// Get on "OK:" has zero fields and must fail; the request still
		// reaches the server first.
		t.Fatalf("expected get error on empty response")
	}
	if err := client.Set("ComPort", 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := client.Ctrl("verbosity", 1); err != nil {
		t.Fatalf("ctrl: %v", err)
	}

	want := []string{
		"call : SetBarrierSpeed 85 true fast",
		"call : StepRelax",
		"get : CurrentSpeed",
		"set : ComPort 3",
		"ctrl : verbosity 1",
	}
	got := server.Received()
	if len(got) != len(want) {
		t.Fatalf("received %d lines, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetRequiresSingleField(t *testing.T) {
	testlog.Start(t)

	t.Run("single", func(t *testing.T) {
		server := startFakeServer(t, func(string) string { return "OK: 42\n" })
		client := dialFake(t, server)

		v, err := client.Get("CurrentSpeed")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if v != Int(42) {
			t.Fatalf("got %v, want Int 42", v)
		}
	})

	t.Run("two fields fail", func(t *testing.T) {
		server := startFakeServer(t, func(string) string { return "OK: 1 2\n" })
		client := dialFake(t, server)

		_, err := client.Get("CurrentSpeed")
		var protoErr *ProtocolError
		if !errors.As(err, &protoErr) {
			t.Fatalf("expected ProtocolError, got %v", err)
		}
		if protoErr.Prop != "CurrentSpeed" {
			t.Fatalf("unexpected property: %q", protoErr.Prop)
		}
		if len(protoErr.Fields) != 2 {
			t.Fatalf("unexpected fields: %s", protoErr.Fields)
		}
	})
}

func TestSetRequiresEmptyResult(t *testing.T) {
	testlog.Start(t)

	t.Run("empty succeeds", func(t *testing.T) {
		server := startFakeServer(t, func(string) string { return "OK:\n" })
		client := dialFake(t, server)

		if err := client.Set("ComPort", 3); err != nil {
			t.Fatalf("set: %v", err)
		}
	})

	t.Run("nonempty fails", func(t *testing.T) {
		server := startFakeServer(t, func(string) string { return "OK: 1\n" })
		client := dialFake(t, server)

		err := client.Set("ComPort", 3)
		var protoErr *ProtocolError
		if !errors.As(err, &protoErr) {
			t.Fatalf("expected ProtocolError, got %v", err)
		}
		if protoErr.Prop != "ComPort" {
			t.Fatalf("unexpected property: %q", protoErr.Prop)
		}
	})
}

func TestCtrlReturnsUnshapedFields(t *testing.T) {
	testlog.Start(t)

	server := startFakeServer(t, func(string) string { return "OK: 0 1 2\n" })
	client := dialFake(t, server)

	fields, err := client.Ctrl("verbosity", 3)
	if err != nil {
		t.Fatalf("ctrl: %v", err)
	}
	if len(fields) != 3 || fields[0] != Int(0) {
		t.Fatalf("unexpected fields: %s", fields)
	}
}

func TestErrorResponsePreservesLine(t *testing.T) {
	testlog.Start(t)

	server := startFakeServer(t, func(string) string { return "ERROR: device is busy\n" })
	client := dialFake(t, server)

	_, err := client.Call("StartMeasure")
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if protoErr.Line != "ERROR: device is busy" {
		t.Fatalf("line not preserved: %q", protoErr.Line)
	}
}

func TestPeerCloseIsConnectionError(t *testing.T) {
	testlog.Start(t)

	server := startFakeServer(t, func(string) string { return "" })
	client := dialFake(t, server)

	_, err := client.Call("GetData")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestScriptedConversation(t *testing.T) {
	testlog.Start(t)

	server := startFakeServer(t, respondWith(map[string]string{
		"GetMaxBarrierSpeed": "OK: 0 85.0\n",
		"CurrentPosition":    "OK: 12.5\n",
	}))
	client := dialFake(t, server)

	speed, err := client.Call("GetMaxBarrierSpeed")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(speed) != 1 || speed[0] != Real(85.0) {
		t.Fatalf("unexpected speed result: %s", speed)
	}

	pos, err := client.Get("CurrentPosition")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pos != Real(12.5) {
		t.Fatalf("unexpected position: %v", pos)
	}
}

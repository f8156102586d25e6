//go:build !tinygo

package main

import (
	"strings"
	"testing"
)

type panelTrace struct{ calls []string }

func (p *panelTrace) Touch(x, y uint16) { p.calls = append(p.calls, "touch") }
func (p *panelTrace) Lift()             { p.calls = append(p.calls, "lift") }

func TestParseScript(t *testing.T) {
	s, err := parseScript(`
		# open settings, come back
		tap 50 50
		wait 3
		hold 10 "220" 2
	`)
	if err != nil {
		t.Fatal(err)
	}
	want := touchScript{
		{frame: 0, down: true, x: 50, y: 50},
		{frame: 1},
		{frame: 5, down: true, x: 10, y: 220},
		{frame: 7},
	}
	if len(s) != len(want) {
		t.Fatalf("got %+v", s)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("step %d = %+v, want %+v", i, s[i], want[i])
		}
	}
}

func TestParseScriptErrors(t *testing.T) {
	cases := map[string]string{
		"tap 1":         "want 2 arguments",
		"swipe 1 2":     "unknown command",
		"wait x":        "wait: argument 1",
		"hold 1 2 0":    "at least 1",
		"tap 70000 1":   "tap: argument 1",
		`tap "1 2`:      "touch script",
		"wait 1 tap 1 ": "want 2 arguments",
	}
	for src, want := range cases {
		_, err := parseScript(src)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%q: got %v, want error containing %q", src, err, want)
		}
	}
}

func TestEmptyScript(t *testing.T) {
	s, err := parseScript("  # nothing\n")
	if err != nil || len(s) != 0 {
		t.Fatalf("got %v, %v", s, err)
	}
}

func TestApply(t *testing.T) {
	s, err := parseScript("tap 1 2 tap 3 4")
	if err != nil {
		t.Fatal(err)
	}
	p := &panelTrace{}
	for f := 0; f < 5; f++ {
		s.apply(f, p)
	}
	if got := strings.Join(p.calls, " "); got != "touch lift touch lift" {
		t.Fatalf("calls = %q", got)
	}
}

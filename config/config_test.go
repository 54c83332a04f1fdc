package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxStalls != 3 || p.MaxResets != 3 || p.MaxRounds != 20 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.RoundTimeout != 5*time.Minute {
		t.Fatalf("unexpected default timeout: %s", p.RoundTimeout)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy must validate: %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
		ok     bool
	}{
		{"defaults", func(*Policy) {}, true},
		{"zero stalls", func(p *Policy) { p.MaxStalls = 0 }, false},
		{"negative resets", func(p *Policy) { p.MaxResets = -1 }, false},
		{"zero resets", func(p *Policy) { p.MaxResets = 0 }, true},
		{"zero rounds", func(p *Policy) { p.MaxRounds = 0 }, false},
		{"negative timeout", func(p *Policy) { p.RoundTimeout = -time.Second }, false},
		{"disabled timeout", func(p *Policy) { p.RoundTimeout = 0 }, true},
	}
	for _, tc := range cases {
		p := DefaultPolicy()
		tc.mutate(&p)
		err := p.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte("max_stalls: 2\nmax_rounds: 8\nround_timeout: 90s\n"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if p.MaxStalls != 2 || p.MaxRounds != 8 {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if p.MaxResets != 3 {
		t.Errorf("absent key should keep default, got %d", p.MaxResets)
	}
	if p.RoundTimeout != 90*time.Second {
		t.Errorf("round_timeout = %s, want 90s", p.RoundTimeout)
	}
}

func TestParse_EmptyInputKeepsDefaults(t *testing.T) {
	p, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if p != DefaultPolicy() {
		t.Fatalf("empty input should yield defaults, got %+v", p)
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "max_stalls: 2\nmax_stall: 5\n",
		"bad duration":      "round_timeout: soon\n",
		"invalid value":     "max_rounds: 0\n",
		"malformed yaml":    "max_stalls: [\n",
		"explicit nonsense": "max_resets: -4\n",
	}
	for name, input := range cases {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("%s: expected error for %q", name, input)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("max_resets: 1\nround_timeout: 2m\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if p.MaxResets != 1 || p.RoundTimeout != 2*time.Minute {
		t.Fatalf("unexpected policy: %+v", p)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// Copyright 2026 Tedrolin

package connector

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExampleConfigParses(t *testing.T) {
	t.Parallel()
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExampleConfig), &cfg); err != nil {
		t.Fatalf("unmarshal example config: %v", err)
	}
	if cfg.URI == "" {
		t.Error("example config has no uri")
	}
	if cfg.RosterRefreshMinutes != 10 {
		t.Errorf("roster_refresh_minutes: got %d, want 10", cfg.RosterRefreshMinutes)
	}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("post-process example config: %v", err)
	}
	if got := cfg.FormatDisplayname(DisplaynameParams{Nickname: "Bob", Wxid: "wxid_bob"}); got != "Bob" {
		t.Errorf("template render: got %q, want %q", got, "Bob")
	}
}

func TestFormatDisplaynameFallbackChain(t *testing.T) {
	t.Parallel()
	var cfg Config
	tests := []struct {
		name   string
		params DisplaynameParams
		want   string
	}{
		{"username wins", DisplaynameParams{Username: "Alice", Nickname: "nick", Wxid: "w"}, "Alice"},
		{"nickname next", DisplaynameParams{Nickname: "nick", Wxid: "w"}, "nick"},
		{"wxid last", DisplaynameParams{Wxid: "wxid_x"}, "wxid_x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cfg.FormatDisplayname(tt.params); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDisplaynameCustomTemplate(t *testing.T) {
	t.Parallel()
	cfg := Config{DisplaynameTemplate: "{{.Nickname}} (WeChat)"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("post-process: %v", err)
	}
	if got := cfg.FormatDisplayname(DisplaynameParams{Nickname: "Bob"}); got != "Bob (WeChat)" {
		t.Errorf("got %q, want %q", got, "Bob (WeChat)")
	}
}

func TestPostProcessRejectsBadTemplate(t *testing.T) {
	t.Parallel()
	cfg := Config{DisplaynameTemplate: "{{.Broken"}
	if err := cfg.PostProcess(); err == nil {
		t.Error("expected error for malformed template")
	}
}

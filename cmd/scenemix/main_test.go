package main

import (
	"testing"

	"github.com/graystream/scenemix/internal/bridge"
	"github.com/graystream/scenemix/internal/infrastructure/config"
)

func TestApplyLogOverrides(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want string
	}{
		{"no flags keep config", options{}, "warn"},
		{"verbose selects info", options{verbose: true}, "info"},
		{"debug selects debug", options{debug: true}, "debug"},
		{"debug wins over verbose", options{debug: true, verbose: true}, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Logging.Level = "warn"
			applyLogOverrides(cfg, tt.opts)
			if cfg.Logging.Level != tt.want {
				t.Errorf("level = %q, want %q", cfg.Logging.Level, tt.want)
			}
		})
	}
}

func TestBuildSceneMap(t *testing.T) {
	scenes := buildSceneMap(map[string][]int{
		"Intro": {1, 2},
		"BRB":   {},
	})

	if len(scenes) != 2 {
		t.Fatalf("len = %d, want 2", len(scenes))
	}
	got, ok := scenes[bridge.SceneName("Intro")]
	if !ok || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Intro = %v (present %v)", got, ok)
	}
	if brb, ok := scenes[bridge.SceneName("BRB")]; !ok || len(brb) != 0 {
		t.Errorf("BRB = %v (present %v), want present and empty", brb, ok)
	}
}

func TestStatusPublisher_NilClient(t *testing.T) {
	if got := statusPublisher(nil); got != nil {
		t.Errorf("statusPublisher(nil) = %v, want nil interface", got)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/loom/internal/config/watcher"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/presets/core"
	"github.com/dshills/loom/internal/presets/formatting"
)

func noEnv() []string { return nil }

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Environ: noEnv})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadLayers(t *testing.T) {
	fsys := fstest.MapFS{"loom.yaml": {Data: []byte(`
log:
  level: debug
  file: loom.log
store:
  path: file.db
enable: [formatting, dropCursor]
options:
  core:
    indentLevels: [0, 3]
exclude:
  keymap: true
scripts:
  - name: shout
    source: "commands = {}"
`)}}
	cfg, err := Load(LoadOptions{
		Path:    "loom.yaml",
		FS:      fsys,
		Environ: func() []string { return []string{"LOOM_STORE_PATH=env.db", "LOOM_LOG_MAX_SIZE=20"} },
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.Log.Level = "debug"
	want.Log.File = "loom.log"
	want.Log.MaxSize = 20
	want.Store.Path = "env.db"
	want.Enable = []string{"formatting", "dropCursor"}
	want.Options = map[string]map[string]any{"core": {"indentLevels": []any{0, 3}}}
	want.Exclude = map[string]bool{"keymap": true}
	want.Scripts = []ScriptConfig{{Name: "shout", Source: "commands = {}"}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Enabled(EnableDropCursor) || cfg.Enabled(EnablePersist) {
		t.Errorf("Enabled() wrong for %v", cfg.Enable)
	}
	if diff := cmp.Diff(map[string]any{"keymap": true}, cfg.Globals()["exclude"]); diff != "" {
		t.Errorf("Globals() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOML(t *testing.T) {
	fsys := fstest.MapFS{"loom.toml": {Data: []byte("enable = [\"persist\"]\n\n[store]\ndebounce = 250\n")}}
	cfg, err := Load(LoadOptions{Path: "loom.toml", FS: fsys, Environ: noEnv})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Debounce != 250 || !cfg.Enabled(EnablePersist) {
		t.Errorf("cfg = %+v, want debounce 250 with persist", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "colour: red\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative debounce", "store:\n  debounce: -1\n"},
		{"unknown extension", "enable: [tables]\n"},
		{"duplicate enable", "enable: [persist, persist]\n"},
		{"script without code", "scripts:\n  - name: empty\n"},
		{"script without name", "scripts:\n  - source: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"loom.yaml": {Data: []byte(tt.data)}}
			_, err := Load(LoadOptions{Path: "loom.yaml", FS: fsys, Environ: noEnv})
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func newManager(t *testing.T) *manager.Manager {
	t.Helper()
	c, _ := core.New(nil)
	f, _ := formatting.New(nil)
	m, _ := managertest.New(t, managertest.Doc("hello"), c, f)
	return m
}

func TestApply(t *testing.T) {
	m := newManager(t)
	prev := Default()
	prev.Options = map[string]map[string]any{
		"core":      {"indentLevels": []any{0, 7}},
		"bold":      {"weight": 600},
		"hardBreak": {},
	}
	next := Default()
	next.Options = map[string]map[string]any{
		"core":      {"indentLevels": []any{0, 3}},
		"bold":      {"weight": 600},
		"hardBreak": {},
	}

	updated, err := Apply(m, prev, next)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if diff := cmp.Diff([]string{"core"}, updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	para, _ := manager.Extension[*paragraph.Extension](m)
	if diff := cmp.Diff([]any{0, 3}, para.Options()["indentLevels"]); diff != "" {
		t.Errorf("paragraph indentLevels mismatch (-want +got):\n%s", diff)
	}

	next.Options["missing"] = map[string]any{"x": 1}
	next.Options["bold"] = map[string]any{"nope": 1}
	updated, err = Apply(m, prev, next)
	if err == nil {
		t.Fatal("Apply() error = nil, want errors for missing and bad options")
	}
	if !errors.Is(err, manager.ErrExtensionNotFound) {
		t.Errorf("Apply() error = %v, want ErrExtensionNotFound", err)
	}
	if diff := cmp.Diff([]string{"core"}, updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
}

func TestReloader(t *testing.T) {
	m := newManager(t)
	path := filepath.Join(t.TempDir(), "loom.yaml")
	write := func(data string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("options:\n  bold:\n    weight: 600\n")

	opts := LoadOptions{Path: path, Environ: noEnv}
	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	r, err := NewReloader(m, cfg, opts, watcher.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewReloader() error = %v", err)
	}
	defer r.Close()

	type result struct {
		updated []string
		err     error
	}
	results := make(chan result, 10)
	r.OnReload = func(_ *Config, updated []string, err error) { results <- result{updated, err} }

	write("options:\n  bold:\n    weight: 800\n")
	select {
	case res := <-results:
		if res.err != nil {
			t.Fatalf("reload error = %v", res.err)
		}
		if diff := cmp.Diff([]string{"bold"}, res.updated); diff != "" {
			t.Errorf("updated mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing the config")
	}
	if got := r.Current().Options["bold"]["weight"]; got != 800 {
		t.Errorf("current weight = %v, want 800", got)
	}

	write("log:\n  level: loud\n")
	if _, err := r.Reload(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Reload() error = %v, want ErrInvalidConfig", err)
	}
	if got := r.Current().Options["bold"]["weight"]; got != 800 {
		t.Errorf("current weight after failed reload = %v, want 800", got)
	}
}

package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeADB writes an adb stand-in that logs its arguments and reports one
// online 1080x2400 device.
func fakeADB(t *testing.T) (bin, logPath string) {
	t.Helper()
	dir := t.TempDir()
	logPath = filepath.Join(dir, "adb.log")
	bin = filepath.Join(dir, "adb")

	script := `#!/bin/sh
echo "$@" >> ` + logPath + `
case "$*" in
  get-state) echo device ;;
  "shell wm size") echo "Physical size: 1080x2400" ;;
esac
`
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake adb: %v", err)
	}
	return bin, logPath
}

func TestPlugin_ADBInput_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake adb is a shell script")
	}

	// Find the built plugin
	pluginDir := findPluginDir("adb-input")
	if pluginDir == "" {
		t.Skip("adb-input plugin not built")
	}

	bin, logPath := fakeADB(t)
	t.Setenv("ADB", bin)

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("adb-input")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for _, action := range []string{ActionStatus, ActionSwipe, ActionTap, ActionVolumeDown} {
		if !plug.Manifest.Supports(action) {
			t.Errorf("manifest does not list %s", action)
		}
	}

	executor := NewExecutor(5000)
	ctx := context.Background()

	t.Run("status", func(t *testing.T) {
		resp, err := executor.Execute(ctx, plug, &Request{Action: ActionStatus})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !resp.Success {
			t.Errorf("status failed: %s", resp.Error)
		}
	})

	t.Run("swipe", func(t *testing.T) {
		req := &Request{Action: ActionSwipe, Params: []byte(`{"x1":0.5,"y1":0.75,"x2":0.5,"y2":0.25,"duration_ms":300}`)}
		resp, err := executor.Execute(ctx, plug, req)
		if err != nil || !resp.Success {
			t.Fatalf("Execute() = %+v, %v", resp, err)
		}

		log, _ := os.ReadFile(logPath)
		if !strings.Contains(string(log), "shell input swipe 540 1799 540 600 300") {
			t.Errorf("adb log = %s", log)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		resp, err := executor.Execute(ctx, plug, &Request{Action: "launch"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if resp.Success {
			t.Error("expected failure for unknown action")
		}
	})
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		manifest := filepath.Join(dir, ManifestFile)
		if _, err := os.Stat(manifest); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}

package main

import (
	"path/filepath"
	"testing"
)

func TestNotifyTestViaDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
	requireContains(t, out, "Notification not sent")
}

func TestNotifyTestDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t)

	deadSocket := filepath.Join(t.TempDir(), "missing.sock")
	out, _, err := runCLI(t, []string{"notify", "test"}, deadSocket, env.configPath)
	if err != nil {
		t.Fatalf("notify test offline: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

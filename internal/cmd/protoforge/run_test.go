package protoforge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROTOFORGE_DB_PATH", filepath.Join(t.TempDir(), "protoforge.db"))
	t.Setenv("PROTOFORGE_PROTOTYPE_MODULES", "")
	t.Setenv("PROTOFORGE_FUNC_MODULES", "")
	t.Setenv("PROTOFORGE_TYPECLASSES", "thing")
}

func TestRun_RequiresCommand(t *testing.T) {
	setupEnv(t)
	var out strings.Builder
	if err := Run(context.Background(), nil, &out); err == nil {
		t.Error("Run() error = nil, want command-required error")
	}
	if !strings.Contains(out.String(), "usage:") {
		t.Errorf("output = %q, want usage printed", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	setupEnv(t)
	var out strings.Builder
	if err := Run(context.Background(), []string{"bogus"}, &out); err == nil {
		t.Error("Run() error = nil, want unknown-command error")
	}
}

func TestRun_CreateListDelete(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	definition := filepath.Join(t.TempDir(), "orc.yaml")
	content := "prototype_key: orc\nprototype_desc: an orc\ntypeclass: thing\nhp: 10\n"
	if err := os.WriteFile(definition, []byte(content), 0o600); err != nil {
		t.Fatalf("write definition: %v", err)
	}

	var out strings.Builder
	if err := Run(ctx, []string{"create", "-file", definition}, &out); err != nil {
		t.Fatalf("create error = %v", err)
	}
	if !strings.Contains(out.String(), "saved prototype orc") {
		t.Errorf("create output = %q", out.String())
	}

	out.Reset()
	if err := Run(ctx, []string{"list", "-perm", "Admin"}, &out); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), "orc") {
		t.Errorf("list output missing orc:\n%s", out.String())
	}

	out.Reset()
	if err := Run(ctx, []string{"show", "-key", "orc"}, &out); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out.String(), "an orc") {
		t.Errorf("show output missing description:\n%s", out.String())
	}

	out.Reset()
	if err := Run(ctx, []string{"validate", "-key", "orc"}, &out); err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out.String(), "validates") {
		t.Errorf("validate output = %q", out.String())
	}

	out.Reset()
	if err := Run(ctx, []string{"delete", "-key", "orc", "-perm", "Admin"}, &out); err != nil {
		t.Fatalf("delete error = %v", err)
	}

	out.Reset()
	if err := Run(ctx, []string{"list"}, &out); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), "no prototypes found") {
		t.Errorf("list output = %q, want empty store", out.String())
	}
}

func TestRun_SpawnedEmpty(t *testing.T) {
	setupEnv(t)
	var out strings.Builder
	if err := Run(context.Background(), []string{"spawned", "-key", "orc"}, &out); err != nil {
		t.Fatalf("spawned error = %v", err)
	}
	if !strings.Contains(out.String(), "no entities spawned") {
		t.Errorf("spawned output = %q", out.String())
	}
}

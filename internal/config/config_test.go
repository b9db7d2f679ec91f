package config

import (
	"os"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProjectName != "flow-test" {
		t.Errorf("ProjectName = %q, want default", cfg.ProjectName)
	}
	if cfg.Execution.MaxParallel != 4 {
		t.Errorf("MaxParallel = %d, want default 4", cfg.Execution.MaxParallel)
	}
}

func TestLoadCSVOverridesPopulateFilters(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load(Options{PriorityCSV: "critical, high", NodeCSV: "a,b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Filters.Priority) != 2 || cfg.Filters.Priority[0] != "critical" {
		t.Errorf("Filters.Priority = %v", cfg.Filters.Priority)
	}
	if len(cfg.Filters.NodeIDs) != 2 {
		t.Errorf("Filters.NodeIDs = %v", cfg.Filters.NodeIDs)
	}
}

func TestLoadRejectsUnknownPriorityLevel(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := dir + "/flow-test.config.yml"
	content := "project_name: x\ntest_directory: ./tests\npriorities:\n  levels: [critical, bogus]\n"
	if err := writeFile(path, content); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := Load(Options{ConfigPath: path})
	if err == nil {
		t.Fatal("expected validation error for unknown priority level")
	}
}

func TestSequentialModeForcesMaxParallelToOne(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := dir + "/flow-test.config.yml"
	content := "project_name: x\ntest_directory: ./tests\nexecution:\n  mode: sequential\n  max_parallel: 8\n"
	if err := writeFile(path, content); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := Load(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Execution.MaxParallel != 1 {
		t.Errorf("MaxParallel = %d, want 1 for sequential mode", cfg.Execution.MaxParallel)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/autoposter/internal/database"
	"github.com/nao1215/autoposter/internal/model"
)

func seedHistory(t *testing.T, dir string, runs ...*model.Run) {
	t.Helper()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, r := range runs {
		if err := db.SaveRun(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs filtered by make", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		audi := model.NewRun("Audi", "")
		bmw := model.NewRun("BMW", "")
		seedHistory(t, dir, audi, bmw)

		var stdout bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&stdout)
		cmd.SetArgs([]string{"history", "--data-dir", dir, "--make", "audi"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(stdout.String(), audi.ID) {
			t.Errorf("expected %s in output:\n%s", audi.ID, stdout.String())
		}
		if strings.Contains(stdout.String(), bmw.ID) {
			t.Errorf("unexpected %s in output", bmw.ID)
		}
	})

	t.Run("shows one run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		run := model.NewRun("Lada", "niva")
		run.ModelName = "Niva"
		seedHistory(t, dir, run)

		var stdout bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&stdout)
		cmd.SetArgs([]string{"history", "--data-dir", dir, "--format", "markdown", run.ID})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "Niva") {
			t.Errorf("output:\n%s", stdout.String())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		seedHistory(t, dir)

		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"history", "--data-dir", dir, "missing"})
		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error for unknown run")
		}
	})

	t.Run("no database", func(t *testing.T) {
		t.Parallel()
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"history", "--data-dir", filepath.Join(t.TempDir(), "empty")})
		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error without a database")
		}
	})
}

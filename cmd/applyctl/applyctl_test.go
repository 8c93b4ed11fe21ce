package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobapply-backend/internal/history"
)

func TestAnalyzeCommandUsesBasicAnalysisWithoutProvider(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	job := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(resume, []byte("Jane Ann Doe\nSkills: Go, PostgreSQL, Kubernetes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(job, []byte("Backend Engineer\nExperience with Go, Terraform and Kafka required."), 0o600); err != nil {
		t.Fatal(err)
	}
	historyFile := filepath.Join(dir, "history.json")
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("HISTORY_FILE", historyFile)
	t.Setenv("GMAIL_TOKEN_DIR", filepath.Join(dir, "tokens"))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"analyze", "--resume", resume, "--job", job})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out.String(), "BASIC TEXT ANALYSIS") {
		t.Fatalf("expected basic analysis output, got %q", out.String())
	}

	entries, err := history.NewFileRepo(historyFile).Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != history.KindAnalysis {
		t.Fatalf("unexpected history: %#v", entries)
	}
}

func TestDraftRequiresConnection(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(resume, []byte("Jane Ann Doe\nSkills: Go\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	job := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(job, []byte("Go Developer wanted"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("HISTORY_FILE", filepath.Join(dir, "history.json"))
	t.Setenv("GMAIL_TOKEN_DIR", filepath.Join(dir, "tokens"))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"draft", "--resume", resume, "--job", job, "--to", "jobs@example.com"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "applyctl connect") {
		t.Fatalf("expected connect hint, got %v", err)
	}
}

func TestRunRequiresJobInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", "--resume", "resume.pdf"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without --job or --job-url")
	}
}

func TestPrintHistory(t *testing.T) {
	repo := history.NewMemoryRepo(0)
	ctx := context.Background()
	_ = repo.Append(ctx, history.NewEntry("", history.KindEmail, "send", "jobs@example.com", "Job Application - Jane", "body"))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	if err := printHistory(ctx, root, repo, 5); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out.String(), "jobs@example.com") || !strings.Contains(out.String(), "SUBJECT") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

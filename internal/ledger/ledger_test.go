package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cvranon/internal/anonymize"

	"go.uber.org/goleak"
)

func TestLedger_RecordAndList(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first.csv", "second.csv", "third.csv"} {
		run := &Run{
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Input:     "in/" + name,
			Output:    "out/" + name,
			Threshold: 10,
			Policy:    "single",
			Ballots:   100 + i,
		}
		if i == 1 {
			run.Warnings = []anonymize.Warning{{
				Kind:      anonymize.WarnUnbalanced,
				Message:   "AGGREGATED-1: contest \"Mayor\" is lopsided",
				Aggregate: "AGGREGATED-1",
				Contest:   "Mayor",
			}}
		}
		if err := l.Record(ctx, run); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if run.ID == "" {
			t.Fatal("Record did not assign an id")
		}
	}

	runs, err := l.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Input != "in/third.csv" || runs[2].Input != "in/first.csv" {
		t.Errorf("runs not newest first: %s, %s", runs[0].Input, runs[2].Input)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started_at round trip: got %v", runs[0].StartedAt)
	}
	if len(runs[1].Warnings) != 1 || runs[1].Warnings[0].Contest != "Mayor" {
		t.Errorf("warnings not restored: %+v", runs[1].Warnings)
	}
	if len(runs[0].Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", runs[0].Warnings)
	}

	limited, err := l.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 || limited[1].Input != "in/second.csv" {
		t.Errorf("limit not applied: %+v", limited)
	}
}

func TestLedger_OpenCreatesDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := l.Record(context.Background(), &Run{Input: "a", Output: "b", Policy: "single"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	l.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d", len(runs))
	}
	if reopened.Path() != path {
		t.Errorf("Path = %s, want %s", reopened.Path(), path)
	}
}

func TestRunFromReport(t *testing.T) {
	r := &anonymize.Report{
		Threshold:       10,
		Policy:          "similarity",
		TotalBallots:    50,
		RareBallots:     4,
		BorrowedBallots: 6,
		OutputRows:      41,
		Aggregates:      []anonymize.AggregateInfo{{ID: "AGGREGATED-1", Ballots: 10}},
	}
	run := RunFromReport("in.csv", "out.csv", r)
	if run.Aggregates != 1 || run.Borrowed != 6 || run.Ballots != 50 || run.Policy != "similarity" {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestDigest(t *testing.T) {
	data := []byte("CvrNumber,TabulatorNum\n1,2\n")
	d := Digest(data)
	if !strings.HasPrefix(d, "blake3:") || len(d) != len("blake3:")+64 {
		t.Fatalf("unexpected digest format: %s", d)
	}
	if d != Digest(data) {
		t.Error("digest is not deterministic")
	}
	if d == Digest([]byte("other")) {
		t.Error("different inputs share a digest")
	}

	path := filepath.Join(t.TempDir(), "cvr.csv")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	fd, err := DigestFile(path)
	if err != nil {
		t.Fatalf("DigestFile failed: %v", err)
	}
	if fd != d {
		t.Errorf("DigestFile = %s, Digest = %s", fd, d)
	}

	if _, err := DigestFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

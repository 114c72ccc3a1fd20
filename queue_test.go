package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestRunJobs(t *testing.T) {
	rc := DefaultConf()
	rc.Jobs = 1
	conf, err := rc.ToConfig()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dirs := []string{
		"testfiles/bands",
		"testfiles/empty",
		"testfiles/geo",
		"testfiles/aborted",
	}
	got := RunJobs(context.Background(), dirs, conf, logger)
	if len(got) != len(dirs) {
		t.Fatalf("got %d records, wanted %d\n", len(got), len(dirs))
	}
	wantStatus := []int{ExitNormal, ExitOutputMissing, ExitNormal, ExitAborted}
	for i, rec := range got {
		if rec.Dir != dirs[i] {
			t.Errorf("got %v, wanted %v\n", rec.Dir, dirs[i])
		}
		if rec.Status != wantStatus[i] {
			t.Errorf("%s: got %v, wanted %v\n", rec.Dir, rec.Status, wantStatus[i])
		}
	}
}

func TestRunJobsCanceled(t *testing.T) {
	conf, err := DefaultConf().ToConfig()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := RunJobs(ctx, []string{"testfiles/geo", "testfiles/bands"}, conf, logger)
	if len(got) != 0 {
		t.Errorf("got %d records, wanted 0\n", len(got))
	}
}

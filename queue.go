package main

import (
	"context"
	"log/slog"
)

// RunJobs parses each of dirs with at most conf.Jobs running at once
// and returns the records in the order of dirs. Directories not yet
// started when ctx is canceled are skipped.
func RunJobs(ctx context.Context, dirs []string, conf Config,
	logger *slog.Logger) []Record {
	type job struct {
		rec Record
		idx int
	}
	results := make(chan job, len(dirs))
	sem := make(chan struct{}, conf.Jobs)
	var started int
	for i, dir := range dirs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		started++
		go func(i int, dir string) {
			defer func() { <-sem }()
			logger.Debug("parsing", "dir", dir)
			results <- job{rec: ReadRun(dir, conf, logger), idx: i}
		}(i, dir)
	}
	// skipped dirs are always a suffix of dirs
	ret := make([]Record, started)
	for range ret {
		r := <-results
		ret[r.idx] = r.rec
	}
	logger.Info("jobs done", "dirs", len(ret))
	return ret
}

// Package jobs runs report jobs over a fixed pool of workers. Workers share
// no state: each owns its rendering backend, and every job writes its own
// output file atomically.
package jobs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"neuroqc/pkg/config"
	"neuroqc/pkg/document"
	"neuroqc/pkg/render"
	"neuroqc/pkg/report"
)

// Result is the outcome of one job.
type Result struct {
	Job     config.Job
	Output  string
	Skipped bool
	Err     error
	Elapsed time.Duration
}

// Runner dispatches jobs.
type Runner struct {
	// Base resolves relative input paths
	Base string

	// OutDir receives the outputs; job outputs are relative to it
	OutDir string

	// Workers is the pool size; 0 means runtime.NumCPU()
	Workers int

	// Rewrite regenerates outputs that already exist
	Rewrite bool

	// Format is used when an output has neither a .png nor a .pdf extension
	Format document.Format

	// NewBackend builds one backend per worker; nil uses render.NewRaster
	NewBackend func() render.Backend

	// Source reads inputs; nil reads from disk
	Source report.Source
}

// OutputPath returns where job is written: job.Output under OutDir, with
// its extension replaced by the default format unless it already names a
// supported one.
func (r *Runner) OutputPath(job config.Job) string {
	out := filepath.Join(r.OutDir, job.Output)
	switch strings.ToLower(filepath.Ext(out)) {
	case ".png", ".pdf":
		return out
	}
	format := r.Format
	if format == "" {
		format = document.FormatPNG
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + "." + string(format)
}

// Run executes every job and returns one Result per job, in job order. A
// failing job does not stop the others. Once ctx is done no new job starts
// and the remaining ones report ctx.Err().
func (r *Runner) Run(ctx context.Context, jobs []config.Job) []Result {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(jobs), 1))
	newBackend := r.NewBackend
	if newBackend == nil {
		newBackend = func() render.Backend { return render.NewRaster() }
	}

	results := make([]Result, len(jobs))
	work := make(chan int, workers*5)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := newBackend()
			for i := range work {
				results[i] = r.runOne(b, jobs[i])
			}
		}()
	}

	next := 0
produce:
	for ; next < len(jobs) && ctx.Err() == nil; next++ {
		select {
		case <-ctx.Done():
			break produce
		case work <- next:
		}
	}
	close(work)
	wg.Wait()

	for i := next; i < len(jobs); i++ {
		results[i] = Result{Job: jobs[i], Output: r.OutputPath(jobs[i]), Err: ctx.Err()}
	}
	return results
}

func (r *Runner) runOne(b render.Backend, job config.Job) (res Result) {
	start := time.Now()
	res = Result{Job: job, Output: r.OutputPath(job)}
	defer func() { res.Elapsed = time.Since(start) }()

	if !r.Rewrite {
		if _, err := os.Stat(res.Output); err == nil {
			glog.Warningf("jobs: %s exists, skipping %s", res.Output, job.Name)
			res.Skipped = true
			return res
		}
	}

	res.Err = r.generate(b, job, res.Output)
	if res.Err != nil {
		glog.Errorf("jobs: %s (%s) failed: %v", job.Name, job.Method, res.Err)
	} else {
		glog.Infof("jobs: wrote %s in %v", res.Output, time.Since(start).Round(time.Millisecond))
	}
	return res
}

func (r *Runner) generate(b render.Backend, job config.Job, output string) error {
	kind, err := report.ParseKind(job.Method)
	if err != nil {
		return err
	}
	req, err := report.NewRequest(kind, job.Args, r.Base, r.Source)
	if err != nil {
		return err
	}
	panels, err := report.Generate(b, req)
	if err != nil {
		return err
	}
	w, err := document.ForFormat(document.FormatFor(output))
	if err != nil {
		return err
	}
	return w.Write(output, panels)
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

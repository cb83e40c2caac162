package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/golang/glog"

	"neuroqc/pkg/config"
	"neuroqc/pkg/document"
	"neuroqc/pkg/jobs"
	"neuroqc/pkg/report"
)

// setFlags collects repeated -set KEY=VALUE arguments.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	specFile := flag.String("spec", "", "YAML job specification (batch mode)")
	basePath := flag.String("base", ".", "Base path of the pipeline outputs")
	outPath := flag.String("out", "qc", "Base output path; batch outputs go to <out>/<package>")
	numCores := flag.Int("cores", 0, "Number of parallel jobs (default: numCores from the job file, else all CPUs)")
	rewrite := flag.Bool("rewrite", false, "Overwrite existing outputs")
	format := flag.String("format", "", "Output format for outputs without a .png/.pdf extension (png or pdf)")
	method := flag.String("method", "", "Report method (single mode): "+kindList())
	output := flag.String("o", "", "Output file (single mode)")
	var sets setFlags
	flag.Var(&sets, "set", "Method argument KEY=VALUE (single mode, repeatable)")
	flag.Parse()
	defer glog.Flush()

	var err error
	switch {
	case *specFile != "":
		err = runBatch(*specFile, *basePath, *outPath, *numCores, *rewrite, *format)
	case *method != "" && *output != "":
		err = runSingle(*method, *output, *basePath, *format, sets)
	default:
		flag.Usage()
		glog.Flush()
		os.Exit(2)
	}
	if err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func kindList() string {
	var names []string
	for _, k := range report.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func runBatch(specFile, base, out string, cores int, rewrite bool, format string) error {
	cfg, err := config.LoadConfig(specFile)
	if err != nil {
		return err
	}
	if cores > 0 {
		cfg.Processing.NumCores = cores
	}
	if format == "" {
		format = cfg.Processing.Format
	}
	f, err := document.ParseFormat(format)
	if err != nil {
		return err
	}

	r := &jobs.Runner{
		Base:    base,
		OutDir:  filepath.Join(out, cfg.Package),
		Workers: cfg.Processing.NumCores,
		Rewrite: rewrite || cfg.Processing.Rewrite,
		Format:  f,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	glog.Infof("neuroqc: %d jobs from %s on %d workers (%d CPUs)", len(cfg.Jobs), specFile, r.Workers, runtime.NumCPU())
	start := time.Now()
	results := r.Run(ctx, cfg.Jobs)

	skipped := 0
	for _, res := range results {
		if res.Skipped {
			skipped++
		}
	}
	failed := jobs.Failed(results)
	glog.Infof("neuroqc: %d written, %d skipped, %d failed in %v",
		len(results)-skipped-len(failed), skipped, len(failed), time.Since(start).Round(time.Millisecond))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs failed", len(failed), len(results))
	}
	return nil
}

func runSingle(method, output, base, format string, sets []string) error {
	args, err := config.ParseSet(sets)
	if err != nil {
		return err
	}
	f := document.FormatPNG
	if format != "" {
		if f, err = document.ParseFormat(format); err != nil {
			return err
		}
	}
	r := &jobs.Runner{Base: base, Workers: 1, Rewrite: true, Format: f}
	job := config.Job{Name: "single_image", Method: method, Output: output, Args: args}
	res := r.Run(context.Background(), []config.Job{job})[0]
	if res.Err != nil {
		return res.Err
	}
	glog.Infof("neuroqc: wrote %s", res.Output)
	return nil
}

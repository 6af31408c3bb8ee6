package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const defaultPattern = "**/*.{jsx,tsx,js,ts}"

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Render every module under a directory",
	Long: `Walks the directory for modules matching --pattern, renders each one in
its own session and reports the outcome per file. With --out, a PNG is
written for every module that renders.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := sessionOptionsFrom(cmd)
		if err != nil {
			return err
		}
		pattern, _ := cmd.Flags().GetString("pattern")
		outDir, _ := cmd.Flags().GetString("out")
		jobs, _ := cmd.Flags().GetInt("jobs")

		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid pattern %q", pattern)
		}
		files, err := discover(cmd.Context(), args[0], pattern)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no modules under %s match %s", args[0], pattern)
		}
		if outDir != "" {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
		}

		results := renderAll(cmd.Context(), opts, args[0], files, outDir, jobs)
		failed := report(cmd.OutOrStdout(), results)
		if failed > 0 {
			return fmt.Errorf("%d of %d modules failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().String("pattern", defaultPattern, "Glob selecting modules, relative to the directory")
	batchCmd.Flags().String("out", "", "Directory receiving one PNG per module")
	batchCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Modules rendered concurrently")
}

// discover lists files under root whose slash-separated relative path
// matches pattern, sorted.
func discover(ctx context.Context, root, pattern string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		mu      sync.Mutex
		matches []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			mu.Lock()
			matches = append(matches, rel)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

type batchResult struct {
	File     string
	Nodes    int
	Err      string
	Duration time.Duration
}

func renderAll(ctx context.Context, opts sessionOptions, root string, files []string, outDir string, jobs int) []batchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs < 1 {
		jobs = 1
	}
	results := make([]batchResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			results[i] = renderFile(gctx, opts, root, file, outDir)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func renderFile(ctx context.Context, opts sessionOptions, root, file, outDir string) batchResult {
	start := time.Now()
	res := batchResult{File: file}

	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	job := renderJob{Source: data}
	if outDir != "" {
		job.PNG = filepath.Join(outDir, pngName(file))
	}

	outcome, err := runRender(ctx, opts, job)
	switch {
	case err != nil:
		res.Err = err.Error()
	case outcome.Error != "":
		res.Err = fmt.Sprintf("%s: %s", outcome.Phase, outcome.Error)
	default:
		res.Nodes = outcome.Nodes
	}
	res.Duration = time.Since(start)
	return res
}

// pngName flattens a relative module path into one file name
func pngName(file string) string {
	base := strings.TrimSuffix(filepath.ToSlash(file), filepath.Ext(file))
	return strings.ReplaceAll(base, "/", "_") + ".png"
}

// report prints one row per module and returns the failure count
func report(w io.Writer, results []batchResult) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	failed := 0
	for _, r := range results {
		status := fmt.Sprintf("ok\t%d nodes", r.Nodes)
		if r.Err != "" {
			failed++
			status = "FAIL\t" + r.Err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.File, status, r.Duration.Round(time.Millisecond))
	}
	tw.Flush()
	return failed
}

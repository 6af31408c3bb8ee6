package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/api/client"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render one module and print its tree",
	Long: `Executes the module's default export, optionally simulates taps at the
given points, prints the final tree as JSON and paints it to a PNG or
exports it as HTML. With --server the module is rendered by a running
sandbox server instead of a local host; taps need a local host.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := sessionOptionsFrom(cmd)
		if err != nil {
			return err
		}
		pngPath, _ := cmd.Flags().GetString("png")
		htmlPath, _ := cmd.Flags().GetString("html")
		serverURL, _ := cmd.Flags().GetString("server")
		taps, _ := cmd.Flags().GetStringArray("tap")
		quiet, _ := cmd.Flags().GetBool("quiet")

		points, err := parsePoints(taps)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		opts.OnLog = func(level protocol.Level, text string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", level, text)
		}
		job := renderJob{Source: data, Taps: points, PNG: pngPath, HTML: htmlPath}
		if !quiet {
			job.Out = cmd.OutOrStdout()
		}
		var outcome *renderOutcome
		if serverURL != "" {
			outcome, err = runRemote(cmd.Context(), client.New(client.Options{BaseURL: serverURL, Retries: 2}), opts, job)
		} else {
			outcome, err = runRender(cmd.Context(), opts, job)
		}
		if err != nil {
			return err
		}
		for _, note := range outcome.Notes {
			fmt.Fprintln(cmd.ErrOrStderr(), note)
		}
		if outcome.Error != "" {
			return fmt.Errorf("%s failed: %s", outcome.Phase, outcome.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().String("png", "", "Write the final frame to this PNG file")
	renderCmd.Flags().String("html", "", "Export the final tree to this HTML file")
	renderCmd.Flags().String("server", "", "Render on the sandbox server at this URL")
	renderCmd.Flags().StringArray("tap", nil, "Tap at x,y after rendering (repeatable)")
	renderCmd.Flags().BoolP("quiet", "q", false, "Do not print the tree")
}

type point struct{ X, Y float64 }

func parsePoints(raw []string) ([]point, error) {
	points := make([]point, 0, len(raw))
	for _, r := range raw {
		xs, ys, ok := strings.Cut(r, ",")
		if !ok {
			return nil, fmt.Errorf("invalid tap %q: want x,y", r)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("invalid tap %q: coordinates must be numbers", r)
		}
		points = append(points, point{x, y})
	}
	return points, nil
}

// renderJob is one module to render
type renderJob struct {
	Source []byte
	Taps   []point
	PNG    string
	HTML   string
	// Out receives the final tree as JSON; nil skips printing
	Out io.Writer
}

// renderOutcome reports how a job ended
type renderOutcome struct {
	Tree  *tree.Serialized
	Nodes int
	Error string
	Phase string
	Notes []string
}

func runRender(ctx context.Context, opts sessionOptions, job renderJob) (*renderOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	source, err := transform.Normalize(job.Source, 0)
	if err != nil {
		return nil, err
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := &renderOutcome{}
	u, err := s.execute(ctx, source)
	if err != nil {
		return nil, err
	}
	if u.Type == protocol.TypeExecutionFailed {
		out.Error, out.Phase = u.Error, u.Phase
		return out, nil
	}

	for _, p := range job.Taps {
		id, u, err := s.tap(ctx, p.X, p.Y)
		switch {
		case errors.Is(err, errNoUpdate):
			out.Notes = append(out.Notes, fmt.Sprintf("tap %g,%g on %s: no state change", p.X, p.Y, id))
			continue
		case err != nil:
			out.Notes = append(out.Notes, fmt.Sprintf("tap %g,%g: %v", p.X, p.Y, err))
			continue
		}
		if u.Type == protocol.TypeExecutionFailed {
			out.Error, out.Phase = u.Error, u.Phase
			return out, nil
		}
		out.Notes = append(out.Notes, fmt.Sprintf("tap %g,%g on %s: re-rendered", p.X, p.Y, id))
	}

	out.Tree = s.pres.Tree()
	out.Nodes = out.Tree.Count()

	if job.Out != nil {
		data, err := sonic.ConfigStd.MarshalIndent(out.Tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		if _, err := fmt.Fprintln(job.Out, string(data)); err != nil {
			return nil, err
		}
	}
	if job.PNG != "" {
		if err := writePNG(s, job.PNG); err != nil {
			return nil, err
		}
	}
	if job.HTML != "" {
		if err := writeHTML(out.Tree, opts, job.HTML); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runRemote renders job on a sandbox server. The server answers one-shot
// renders only, so taps are rejected.
func runRemote(ctx context.Context, c *client.Client, opts sessionOptions, job renderJob) (*renderOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(job.Taps) > 0 {
		return nil, errors.New("taps need a local host; drop --server")
	}
	source, err := transform.Normalize(job.Source, 0)
	if err != nil {
		return nil, err
	}

	resp, err := c.Render(ctx, source, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	for _, l := range resp.Logs {
		if opts.OnLog != nil {
			opts.OnLog(l.Level, l.Message)
		}
	}
	out := &renderOutcome{}
	if resp.Error != "" {
		out.Error, out.Phase = resp.Error, string(resp.Phase)
		return out, nil
	}
	out.Tree = resp.Tree
	out.Nodes = out.Tree.Count()

	if job.Out != nil {
		data, err := sonic.ConfigStd.MarshalIndent(out.Tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		if _, err := fmt.Fprintln(job.Out, string(data)); err != nil {
			return nil, err
		}
	}
	if job.PNG != "" {
		data, err := c.RenderPNG(ctx, source, opts.Width, opts.Height)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(job.PNG, data, 0o644); err != nil {
			return nil, err
		}
	}
	if job.HTML != "" {
		data, err := c.RenderHTML(ctx, source, opts.Width, opts.Height)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(job.HTML, data, 0o644); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeHTML(root *tree.Serialized, opts sessionOptions, path string) error {
	exporter, err := paint.NewHTML(opts.Background, nil)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Render(f, root, opts.Width, opts.Height, path); err != nil {
		f.Close()
		return fmt.Errorf("failed to export %s: %w", path, err)
	}
	return f.Close()
}

func writePNG(s *session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.raster.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

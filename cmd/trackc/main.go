// Command trackc runs a track script or validates a saved snapshot and
// prints a summary of every ride.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/coaster/internal/cli"
	"github.com/chazu/coaster/pkg/config"
	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/editor"
	"github.com/chazu/coaster/pkg/engine"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/kernel/sdfx"
	"github.com/chazu/coaster/pkg/tessellate"
)

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, stdout)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		if cfg, err = config.Load(ctx, opts.ConfigPath); err != nil {
			return &cli.ExitError{Code: 2, Message: err.Error()}
		}
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	logger := cfg.NewLogger(stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	var ed *editor.Editor
	if opts.Check != "" {
		ed, err = check(ctx, cfg, opts.Check)
	} else {
		ed, err = script(ctx, cfg, opts.Script)
	}
	if err != nil {
		return err
	}

	if !opts.Quiet {
		summarize(stdout, ed.Park())
	}
	if opts.Out != "" {
		data, err := ed.Export()
		if err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		if err := write(stdout, opts.Out, data); err != nil {
			return err
		}
		logger.Info("snapshot written", "path", opts.Out, "rides", ed.Park().Len())
	}
	if opts.Meshes != "" {
		meshes, err := tessellate.Park(ed.Park(), sdfx.New(cfg.Mesh.Cells), cfg.Mesh.Options())
		if err != nil {
			return err
		}
		data, err := json.Marshal(meshes)
		if err != nil {
			return fmt.Errorf("encode meshes: %w", err)
		}
		if err := write(stdout, opts.Meshes, data); err != nil {
			return err
		}
		logger.Info("meshes written", "path", opts.Meshes, "meshes", len(meshes))
	}
	return nil
}

func script(ctx context.Context, cfg config.Config, path string) (*editor.Editor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &cli.ExitError{Code: 2, Message: err.Error()}
	}
	eng := engine.NewEngine(
		editor.WithParams(cfg.Geometry, cfg.Snap),
		editor.WithLogger(ctxlog.FromContext(ctx)),
	)
	ed, evalErrs, err := eng.Evaluate(ctx, string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		msg := ""
		for i, e := range evalErrs {
			if i > 0 {
				msg += "\n"
			}
			msg += fmt.Sprintf("%s: %s", path, e.Error())
		}
		return nil, &cli.ExitError{Code: 1, Message: msg}
	}
	return ed, nil
}

// check loads a snapshot, logs every warning, and fails on import errors.
func check(ctx context.Context, cfg config.Config, path string) (*editor.Editor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cli.ExitError{Code: 2, Message: err.Error()}
	}
	logger := ctxlog.FromContext(ctx)
	ed := editor.New(editor.WithParams(cfg.Geometry, cfg.Snap), editor.WithLogger(logger))
	if err := ed.Import(data); err != nil {
		return nil, &cli.ExitError{Code: 1, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	for _, r := range ed.Park().Rides() {
		for _, f := range graph.Validate(r) {
			logger.Warn("snapshot finding", "finding", f.Error())
		}
	}
	return ed, nil
}

func summarize(w io.Writer, p *graph.Park) {
	for _, r := range p.Rides() {
		s := r.Stats()
		status := "open"
		if r.Complete() {
			status = "complete"
		}
		fmt.Fprintf(w, "%s\t%q\t%s\tsegments=%d nodes=%d length=%.2f max_height=%.2f\n",
			r.ID(), r.Name(), status, s.Segments, s.Nodes, s.Length, s.MaxHeight)
	}
}

func write(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

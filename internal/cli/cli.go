package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Options is the parsed command line.
type Options struct {
	Script     string // track script to run
	Check      string // snapshot to validate instead of running a script
	ConfigPath string // optional HCL config
	Out        string // snapshot destination; "-" is stdout
	Meshes     string // rail mesh destination; "-" is stdout
	LogLevel   string // overrides the config when set
	LogFormat  string // overrides the config when set
	Quiet      bool   // suppress the ride summary
}

// Parse processes command-line arguments. It returns the options, whether
// the program should exit cleanly (help or no input), or an *ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	fs := flag.NewFlagSet("trackc", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
trackc - build roller-coaster track from a script.

Usage:
  trackc [options] SCRIPT
  trackc [options] -check SNAPSHOT

Arguments:
  SCRIPT
    Track script (zygomys Lisp) driving the editor.

Options:
`)
		fs.PrintDefaults()
	}

	opts := &Options{}
	fs.StringVar(&opts.Check, "check", "", "Validate a JSON snapshot instead of running a script.")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to an HCL config file.")
	fs.StringVar(&opts.Out, "o", "", "Write the resulting snapshot to this file ('-' for stdout).")
	fs.StringVar(&opts.Meshes, "meshes", "", "Write rail meshes as JSON to this file ('-' for stdout).")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'. Overrides the config.")
	fs.StringVar(&opts.LogFormat, "log-format", "", "Log output format: 'text' or 'json'. Overrides the config.")
	fs.BoolVar(&opts.Quiet, "q", false, "Do not print the ride summary.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	switch {
	case fs.NArg() > 1:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one script, got %d arguments", fs.NArg())}
	case fs.NArg() == 1 && opts.Check != "":
		return nil, false, &ExitError{Code: 2, Message: "a script and -check are mutually exclusive"}
	case fs.NArg() == 1:
		opts.Script = fs.Arg(0)
	case opts.Check == "":
		fs.Usage()
		return nil, true, nil
	}

	if opts.Out == "-" && opts.Meshes == "-" {
		return nil, false, &ExitError{Code: 2, Message: "only one of -o and -meshes may write to stdout"}
	}

	opts.LogFormat = strings.ToLower(opts.LogFormat)
	switch opts.LogFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	opts.LogLevel = strings.ToLower(opts.LogLevel)
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return opts, false, nil
}

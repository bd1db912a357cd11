// Package engine evaluates track scripts. A script is zygomys Lisp whose
// builtins issue editor commands; each evaluation runs in a fresh sandbox
// against a fresh editor.Editor, so the same source always builds the same
// park.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/editor"
)

// EvalError is a non-fatal error in user code: a parse error or a command
// the editor rejected.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine runs track scripts. It is safe for concurrent use; a newer
// evaluation supersedes any still in flight.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	opts    []editor.Option
	timeout time.Duration
}

// NewEngine returns an engine whose editors are built with opts.
func NewEngine(opts ...editor.Option) *Engine {
	return &Engine{opts: opts, timeout: EvalTimeout}
}

// SetTimeout overrides EvalTimeout for this engine.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// Evaluate runs source and returns the editor it built.
//
// Return semantics:
//   - On success: editor + nil errors + nil error
//   - On parse/eval failure: nil editor + eval errors + nil error
//   - On fatal failure (timeout, cancellation, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(ctx context.Context, source string) (*editor.Editor, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.timeout
	e.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("evaluating track script", "generation", gen, "bytes", len(source))

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		ed, evalErrs := e.evaluate(ctx, source)
		ch <- evalResult{editor: ed, errors: evalErrs}
	}()

	ed, evalErrs, err := waitWithTimeout(ctx, ch, gen, timeout, &e.mu, &e.generation)
	switch {
	case err != nil:
		logger.Warn("track script failed", "generation", gen, "err", err)
	case len(evalErrs) > 0:
		logger.Debug("track script has errors", "generation", gen, "errors", len(evalErrs))
	default:
		logger.Debug("track script done", "generation", gen, "state", ed.State(), "rides", ed.Park().Len())
	}
	return ed, evalErrs, err
}

func (e *Engine) evaluate(ctx context.Context, source string) (*editor.Editor, []EvalError) {
	opts := append([]editor.Option{editor.WithLogger(ctxlog.FromContext(ctx))}, e.opts...)
	ed := editor.New(opts...)
	if strings.TrimSpace(source) == "" {
		return ed, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, ed)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return ed, nil
}

// linePattern matches zygomys messages such as "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ..." messages.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

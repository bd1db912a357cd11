// Package config loads coaster settings from an HCL file.
//
// Every block and attribute is optional; anything left out keeps its default.
// Attribute values are HCL expressions evaluated with the variable pi and the
// function deg, which converts degrees to radians:
//
//	geometry {
//	  grid_unit   = 4
//	  slope_angle = deg(30)
//	}
//	validation {
//	  snap_radius = 2.5 * 4
//	}
//
// Unknown blocks or attributes are errors.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/kernel/sdfx"
	"github.com/chazu/coaster/pkg/snap"
	"github.com/chazu/coaster/pkg/tessellate"
)

// Config is the resolved configuration.
type Config struct {
	Geometry geometry.Params
	Snap     snap.Params
	Mesh     Mesh
	Log      Log
}

// Mesh holds rail tessellation settings.
type Mesh struct {
	Cells      int // marching-cubes resolution
	RailRadius float64
	Samples    int
}

// Options returns the tessellator options.
func (m Mesh) Options() tessellate.Options {
	return tessellate.Options{RailRadius: m.RailRadius, Samples: m.Samples}
}

// Log selects the slog handler.
type Log struct {
	Level  string // debug, info, warn or error
	Format string // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := tessellate.DefaultOptions()
	return Config{
		Geometry: geometry.DefaultParams(),
		Snap:     snap.DefaultParams(),
		Mesh:     Mesh{Cells: sdfx.DefaultCells, RailRadius: opts.RailRadius, Samples: opts.Samples},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// NewLogger builds the logger described by c.Log.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return ctxlog.New(c.Log.Level, c.Log.Format, w)
}

type fileRoot struct {
	Geometry   *geometryBlock   `hcl:"geometry,block"`
	Validation *validationBlock `hcl:"validation,block"`
	Mesh       *meshBlock       `hcl:"mesh,block"`
	Log        *logBlock        `hcl:"log,block"`
}

type geometryBlock struct {
	GridUnit     *float64 `hcl:"grid_unit,optional"`
	SlopeAngle   *float64 `hcl:"slope_angle,optional"` // radians
	HandleFactor *float64 `hcl:"handle_factor,optional"`
}

type validationBlock struct {
	SnapRadius   *float64 `hcl:"snap_radius,optional"`
	MinClearance *float64 `hcl:"min_clearance,optional"`
	MinSegments  *int     `hcl:"min_segments,optional"`
}

type meshBlock struct {
	Cells      *int     `hcl:"cells,optional"`
	RailRadius *float64 `hcl:"rail_radius,optional"`
	Samples    *int     `hcl:"samples,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Load reads and decodes the HCL file at path.
func Load(ctx context.Context, path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}
	return decode(ctx, f, path)
}

// Parse decodes HCL source. filename is used in diagnostics only.
func Parse(ctx context.Context, src []byte, filename string) (Config, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(ctx, f, filename)
}

func decode(ctx context.Context, f *hcl.File, filename string) (Config, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, evalContext(), &root); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}

	c := Default()
	if b := root.Geometry; b != nil {
		set(&c.Geometry.GridUnit, b.GridUnit)
		set(&c.Geometry.SlopeAngle, b.SlopeAngle)
		set(&c.Geometry.HandleFactor, b.HandleFactor)
	}
	if b := root.Validation; b != nil {
		set(&c.Snap.SnapRadius, b.SnapRadius)
		set(&c.Snap.MinClearance, b.MinClearance)
		set(&c.Snap.MinSegments, b.MinSegments)
	}
	if b := root.Mesh; b != nil {
		set(&c.Mesh.Cells, b.Cells)
		set(&c.Mesh.RailRadius, b.RailRadius)
		set(&c.Mesh.Samples, b.Samples)
	}
	if b := root.Log; b != nil {
		set(&c.Log.Level, b.Level)
		set(&c.Log.Format, b.Format)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	logger.Debug("config loaded", "file", filename,
		"grid_unit", c.Geometry.GridUnit, "snap_radius", c.Snap.SnapRadius, "cells", c.Mesh.Cells)
	return c, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be a positive number, got %g", name, v))
		}
	}
	positive("geometry.grid_unit", c.Geometry.GridUnit)
	positive("geometry.handle_factor", c.Geometry.HandleFactor)
	if a := c.Geometry.SlopeAngle; !(a >= 0 && a < math.Pi/2) {
		errs = append(errs, fmt.Errorf("geometry.slope_angle must be in [0, pi/2), got %g", a))
	}
	positive("validation.snap_radius", c.Snap.SnapRadius)
	if !(c.Snap.MinClearance >= 0) {
		errs = append(errs, fmt.Errorf("validation.min_clearance must not be negative, got %g", c.Snap.MinClearance))
	}
	if c.Snap.MinSegments < 0 {
		errs = append(errs, fmt.Errorf("validation.min_segments must not be negative, got %d", c.Snap.MinSegments))
	}
	if c.Mesh.Cells < 8 {
		errs = append(errs, fmt.Errorf("mesh.cells must be at least 8, got %d", c.Mesh.Cells))
	}
	if err := c.Mesh.Options().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mesh: %w", err))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi": cty.NumberFloatVal(math.Pi),
		},
		Functions: map[string]function.Function{
			"deg": degFunc,
		},
	}
}

var degFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "degrees", Type: cty.Number}},
	Type:   function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		d, _ := args[0].AsBigFloat().Float64()
		return cty.NumberFloatVal(d * math.Pi / 180), nil
	},
})

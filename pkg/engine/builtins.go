package engine

import (
	"fmt"
	"strings"
	"unicode"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/coaster/pkg/editor"
	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
)

// sexpVec3 carries a geometry.Vec3 between builtins.
type sexpVec3 struct {
	vec geometry.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwArgs is an argument list split into keyword and positional arguments.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// parseArgs pairs every keyword with the value after it. A trailing keyword
// maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:left) or a plain string ("left").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (geometry.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geometry.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toRide(ed *editor.Editor, s zygo.Sexp) (*graph.Ride, error) {
	id, err := toString(s)
	if err != nil {
		return nil, err
	}
	r, ok := ed.Park().Ride(graph.RideID(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownRide, id)
	}
	return r, nil
}

// toSegment accepts a handle string ("s3.1") or a creation-order index.
func toSegment(r *graph.Ride, s zygo.Sexp) (graph.SegmentID, error) {
	if i, ok := s.(*zygo.SexpInt); ok {
		segs := r.Segments()
		if i.Val < 0 || int(i.Val) >= len(segs) {
			return graph.SegmentID{}, fmt.Errorf("segment index %d out of range [0,%d)", i.Val, len(segs))
		}
		return segs[i.Val].ID, nil
	}
	str, err := toString(s)
	if err != nil {
		return graph.SegmentID{}, err
	}
	return graph.ParseSegmentID(str)
}

// toNode accepts a handle string ("n4.1") or a creation-order index.
func toNode(r *graph.Ride, s zygo.Sexp) (graph.NodeID, error) {
	if i, ok := s.(*zygo.SexpInt); ok {
		nodes := r.Nodes()
		if i.Val < 0 || int(i.Val) >= len(nodes) {
			return graph.NodeID{}, fmt.Errorf("node index %d out of range [0,%d)", i.Val, len(nodes))
		}
		return nodes[i.Val].ID, nil
	}
	str, err := toString(s)
	if err != nil {
		return graph.NodeID{}, err
	}
	return graph.ParseNodeID(str)
}

func str(s string) zygo.Sexp { return &zygo.SexpStr{S: s} }

// trackLetters maps the letters accepted by (track "...") to directions.
var trackLetters = map[rune]geometry.Direction{
	'S': geometry.Straight,
	'L': geometry.Left,
	'R': geometry.Right,
}

// registerBuiltins installs the track-script builtins. Every builtin drives
// ed; a rejected command aborts the script with the editor's error. Names
// use underscores because preprocessSource rewrites kebab-case.
func registerBuiltins(env *zygo.Zlisp, ed *editor.Editor) {
	state := func() zygo.Sexp { return str(ed.State().String()) }

	// simple registers a builtin taking no arguments that runs one command.
	simple := func(name string, run func() error) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 0 {
				return zygo.SexpNull, fmt.Errorf("%s takes no arguments, got %d", name, len(args))
			}
			if err := run(); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return state(), nil
		})
	}

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: geometry.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	simple("start_placement", ed.StartPlacement)
	simple("rotate_placement", ed.RotatePlacement)
	simple("commit", ed.Commit)
	simple("cancel", ed.Cancel)
	simple("dismiss", ed.Dismiss)
	simple("clear_selection", ed.ClearSelection)
	simple("delete_selected", ed.DeleteSelected)
	simple("reset", func() error { ed.Reset(); return nil })

	// (state) -> "building"
	env.AddFunction("state", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return state(), nil
	})

	// (place :at (vec3 0 0 0) :turns 1) -> "ride-1"
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var at geometry.Vec3
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			at = vec
		}
		turns := 0
		if v, ok := pa.kw["turns"]; ok {
			n, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: turns: %w", err)
			}
			turns = ((n % 4) + 4) % 4
		}
		if ed.State() != editor.PlacementActive {
			if err := ed.StartPlacement(); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: %w", err)
			}
		}
		for i := 0; i < turns; i++ {
			if err := ed.RotatePlacement(); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: %w", err)
			}
		}
		id, err := ed.ConfirmPlacement(at)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return str(string(id)), nil
	})

	// (direction :left)
	env.AddFunction("direction", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("direction requires 1 argument, got %d", len(args))
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("direction: %w", err)
		}
		d, err := geometry.ParseDirection(s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("direction: %w", err)
		}
		if err := ed.SetDirection(d); err != nil {
			return zygo.SexpNull, fmt.Errorf("direction: %w", err)
		}
		return state(), nil
	})

	// (slope :up)
	env.AddFunction("slope", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("slope requires 1 argument, got %d", len(args))
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("slope: %w", err)
		}
		sl, err := geometry.ParseSlope(s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("slope: %w", err)
		}
		if err := ed.SetSlope(sl); err != nil {
			return zygo.SexpNull, fmt.Errorf("slope: %w", err)
		}
		return state(), nil
	})

	// (extend :left :up 3): set direction and/or slope, then commit n times.
	env.AddFunction("extend", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		count := 1
		for _, a := range args {
			if n, ok := a.(*zygo.SexpInt); ok {
				if n.Val < 1 {
					return zygo.SexpNull, fmt.Errorf("extend: count %d must be positive", n.Val)
				}
				count = int(n.Val)
				continue
			}
			s, err := toKeywordString(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extend: %w", err)
			}
			if d, err := geometry.ParseDirection(s); err == nil {
				err = ed.SetDirection(d)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("extend: %w", err)
				}
				continue
			}
			sl, err := geometry.ParseSlope(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extend: %q is neither a direction nor a slope", s)
			}
			if err := ed.SetSlope(sl); err != nil {
				return zygo.SexpNull, fmt.Errorf("extend: %w", err)
			}
		}
		for i := 0; i < count; i++ {
			if err := ed.Commit(); err != nil {
				return zygo.SexpNull, fmt.Errorf("extend: commit %d: %w", i+1, err)
			}
		}
		return state(), nil
	})

	// (track "SSSL SSSL"): one flat commit per letter; spaces are ignored.
	env.AddFunction("track", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("track requires 1 argument, got %d", len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("track: %w", err)
		}
		if err := ed.SetSlope(geometry.Flat); err != nil {
			return zygo.SexpNull, fmt.Errorf("track: %w", err)
		}
		for i, c := range s {
			if unicode.IsSpace(c) {
				continue
			}
			d, ok := trackLetters[unicode.ToUpper(c)]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("track: offset %d: unknown letter %q, want S, L or R", i, c)
			}
			if err := ed.SetDirection(d); err != nil {
				return zygo.SexpNull, fmt.Errorf("track: offset %d: %w", i, err)
			}
			if err := ed.Commit(); err != nil {
				return zygo.SexpNull, fmt.Errorf("track: offset %d: %w", i, err)
			}
		}
		return state(), nil
	})

	// (select-segment "ride-1" 3) or (select-segment "ride-1" "s3.1")
	env.AddFunction("select_segment", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("select-segment requires a ride and a segment")
		}
		r, err := toRide(ed, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-segment: %w", err)
		}
		seg, err := toSegment(r, args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-segment: %w", err)
		}
		if err := ed.SelectSegment(r.ID(), seg); err != nil {
			return zygo.SexpNull, fmt.Errorf("select-segment: %w", err)
		}
		return str(seg.String()), nil
	})

	// (resume) resumes from the selection; (resume "ride-1" 4) from a node.
	env.AddFunction("resume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		switch len(args) {
		case 0:
			if err := ed.ResumeSelected(); err != nil {
				return zygo.SexpNull, fmt.Errorf("resume: %w", err)
			}
		case 2:
			r, err := toRide(ed, args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("resume: %w", err)
			}
			n, err := toNode(r, args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("resume: %w", err)
			}
			if err := ed.ResumeBuilding(r.ID(), n); err != nil {
				return zygo.SexpNull, fmt.Errorf("resume: %w", err)
			}
		default:
			return zygo.SexpNull, fmt.Errorf("resume takes no arguments or a ride and a node, got %d", len(args))
		}
		return state(), nil
	})

	// (rename "ride-1" "Thunder Run")
	env.AddFunction("rename", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rename requires a ride and a name")
		}
		id, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: ride: %w", err)
		}
		title, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: name: %w", err)
		}
		if err := ed.RenameRide(graph.RideID(id), title); err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: %w", err)
		}
		return args[1], nil
	})

	// (cursor) -> position of the build cursor, or nil when not building.
	env.AddFunction("cursor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c, ok := ed.Cursor()
		if !ok {
			return zygo.SexpNull, nil
		}
		r, _ := ed.Park().Ride(c.Ride)
		n, _ := r.Node(c.Node)
		return &sexpVec3{vec: n.Position}, nil
	})

	// (segment-count "ride-1")
	env.AddFunction("segment_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("segment-count requires a ride")
		}
		r, err := toRide(ed, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("segment-count: %w", err)
		}
		return &zygo.SexpInt{Val: int64(r.SegmentCount())}, nil
	})
}

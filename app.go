package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/coaster/pkg/config"
	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/editor"
	"github.com/chazu/coaster/pkg/engine"
	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/kernel"
	"github.com/chazu/coaster/pkg/kernel/sdfx"
	"github.com/chazu/coaster/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to rides.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// parkChanged is emitted to the frontend after every successful command.
const parkChanged = "park:changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx context.Context // Wails runtime context, nil until startup

	mu     sync.Mutex
	cfg    config.Config
	log    *slog.Logger
	editor *editor.Editor
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// RideView is one ride as the frontend draws it.
type RideView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Complete  bool            `json:"isComplete"`
	Color     string          `json:"color"`
	Stats     graph.RideStats `json:"stats"`
	Nodes     []graph.Node    `json:"nodes"`
	Segments  []graph.Segment `json:"segments"`
	OpenNodes []graph.NodeID  `json:"openNodes"`
	Findings  []string        `json:"findings"`
}

// PreviewView is the uncommitted segment shown while building.
type PreviewView struct {
	ControlPoints geometry.Cubic `json:"controlPoints"`
	End           geometry.Vec3  `json:"end"`
	SnapTarget    string         `json:"snapTarget,omitempty"`
	Blocked       bool           `json:"blocked"`
	Reason        string         `json:"reason,omitempty"`
}

// CursorView names the node the next segment starts from.
type CursorView struct {
	Ride     string        `json:"ride"`
	Node     string        `json:"node"`
	Position geometry.Vec3 `json:"position"`
}

// SelectionView names the selected segment.
type SelectionView struct {
	Ride      string `json:"ride"`
	Segment   string `json:"segment"`
	CanResume bool   `json:"canResume"`
}

// ViewState is everything the frontend needs to redraw after a command.
type ViewState struct {
	Mode      string         `json:"mode"`
	Direction string         `json:"direction"`
	Slope     string         `json:"slope"`
	Rotation  int            `json:"rotation"`
	Rides     []RideView     `json:"rides"`
	Cursor    *CursorView    `json:"cursor"`
	Preview   *PreviewView   `json:"preview"`
	Selection *SelectionView `json:"selection"`
	Completed string         `json:"completed,omitempty"`
}

// CommandResult is returned by every editor command binding. Error is empty
// when the command was applied.
type CommandResult struct {
	State ViewState `json:"state"`
	Error string    `json:"error,omitempty"`
}

// ScriptResult is returned by RunScript.
type ScriptResult struct {
	State  ViewState       `json:"state"`
	Errors []EvalErrorData `json:"errors"`
}

// MeshResult is returned by Meshes.
type MeshResult struct {
	Meshes []MeshData `json:"meshes"`
	Error  string     `json:"error,omitempty"`
}

// NewApp creates an App with an empty park, using cfg for every constant.
func NewApp(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = ctxlog.Discard()
	}
	a := &App{
		cfg:    cfg,
		log:    logger,
		engine: engine.NewEngine(editorOptions(cfg, logger)...),
		kernel: sdfx.New(cfg.Mesh.Cells),
	}
	a.editor = editor.New(editorOptions(cfg, logger)...)
	return a
}

func editorOptions(cfg config.Config, logger *slog.Logger) []editor.Option {
	return []editor.Option{
		editor.WithParams(cfg.Geometry, cfg.Snap),
		editor.WithLogger(logger),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can emit events and open dialogs later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// do runs one editor command under the lock and reports the resulting view.
func (a *App) do(name string, cmd func(ed *editor.Editor) error) CommandResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := CommandResult{}
	if err := cmd(a.editor); err != nil {
		a.log.Debug("command rejected", "cmd", name, "err", err)
		res.Error = err.Error()
	} else {
		a.emit()
	}
	res.State = a.view()
	return res
}

func (a *App) emit() {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, parkChanged)
	}
}

// State returns the current view without changing anything.
func (a *App) State() ViewState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view()
}

func (a *App) StartPlacement() CommandResult {
	return a.do("start-placement", (*editor.Editor).StartPlacement)
}

func (a *App) RotatePlacement() CommandResult {
	return a.do("rotate-placement", (*editor.Editor).RotatePlacement)
}

// ConfirmPlacement creates a ride whose station sits at (x, y, z).
func (a *App) ConfirmPlacement(x, y, z float64) CommandResult {
	return a.do("confirm-placement", func(ed *editor.Editor) error {
		_, err := ed.ConfirmPlacement(geometry.Vec3{X: x, Y: y, Z: z})
		return err
	})
}

// SetDirection accepts "straight", "left" or "right".
func (a *App) SetDirection(name string) CommandResult {
	return a.do("direction", func(ed *editor.Editor) error {
		d, err := geometry.ParseDirection(name)
		if err != nil {
			return err
		}
		return ed.SetDirection(d)
	})
}

// SetSlope accepts "flat", "up" or "down".
func (a *App) SetSlope(name string) CommandResult {
	return a.do("slope", func(ed *editor.Editor) error {
		s, err := geometry.ParseSlope(name)
		if err != nil {
			return err
		}
		return ed.SetSlope(s)
	})
}

func (a *App) Commit() CommandResult { return a.do("commit", (*editor.Editor).Commit) }
func (a *App) Cancel() CommandResult { return a.do("cancel", (*editor.Editor).Cancel) }

func (a *App) SelectSegment(ride, segment string) CommandResult {
	return a.do("select", func(ed *editor.Editor) error {
		id, err := graph.ParseSegmentID(segment)
		if err != nil {
			return err
		}
		return ed.SelectSegment(graph.RideID(ride), id)
	})
}

func (a *App) ClearSelection() CommandResult {
	return a.do("clear-selection", (*editor.Editor).ClearSelection)
}

func (a *App) DeleteSelected() CommandResult {
	return a.do("delete-selected", (*editor.Editor).DeleteSelected)
}

func (a *App) ResumeSelected() CommandResult {
	return a.do("resume", (*editor.Editor).ResumeSelected)
}

// ResumeBuilding continues a ride from one of its open nodes.
func (a *App) ResumeBuilding(ride, node string) CommandResult {
	return a.do("resume", func(ed *editor.Editor) error {
		id, err := graph.ParseNodeID(node)
		if err != nil {
			return err
		}
		return ed.ResumeBuilding(graph.RideID(ride), id)
	})
}

func (a *App) Dismiss() CommandResult { return a.do("dismiss", (*editor.Editor).Dismiss) }

func (a *App) Reset() CommandResult {
	return a.do("reset", func(ed *editor.Editor) error {
		ed.Reset()
		return nil
	})
}

func (a *App) RenameRide(ride, name string) CommandResult {
	return a.do("rename", func(ed *editor.Editor) error {
		return ed.RenameRide(graph.RideID(ride), name)
	})
}

// RunScript evaluates a track script against a fresh park. On success the
// script's park replaces the current one; on any error nothing changes.
func (a *App) RunScript(source string) ScriptResult {
	ctx := ctxlog.WithLogger(context.Background(), a.log)
	ed, evalErrs, err := a.engine.Evaluate(ctx, source)

	a.mu.Lock()
	defer a.mu.Unlock()

	result := ScriptResult{Errors: []EvalErrorData{}}
	switch {
	case err != nil:
		a.log.Warn("script failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	case len(evalErrs) > 0:
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
	default:
		a.editor = ed
		a.emit()
	}
	result.State = a.view()
	return result
}

// Meshes tessellates every committed segment. Each mesh takes the color of
// its ride.
func (a *App) Meshes() MeshResult {
	a.mu.Lock()
	park := a.editor.Park()
	a.mu.Unlock()

	result := MeshResult{Meshes: []MeshData{}}
	opts := a.cfg.Mesh.Options()
	for i, r := range park.Rides() {
		meshes, err := tessellate.Ride(r, a.kernel, opts)
		if err != nil {
			a.log.Error("tessellation failed", "ride", r.ID(), "err", err)
			result.Error = "tessellation failed: " + err.Error()
			return result
		}
		color := colorPalette[i%len(colorPalette)]
		for _, m := range meshes {
			result.Meshes = append(result.Meshes, MeshData{
				Vertices: m.Vertices,
				Normals:  m.Normals,
				Indices:  m.Indices,
				Name:     fmt.Sprintf("%s/%s", r.ID(), m.Name),
				Color:    color,
			})
		}
	}
	return result
}

// ExportPark returns the park as a JSON snapshot.
func (a *App) ExportPark() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, err := a.editor.Export()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportPark replaces the park with a JSON snapshot. A bad snapshot leaves
// the park untouched.
func (a *App) ImportPark(data string) CommandResult {
	return a.do("import", func(ed *editor.Editor) error {
		return ed.Import([]byte(data))
	})
}

// SavePark writes the park snapshot to path.
func (a *App) SavePark(path string) error {
	data, err := a.ExportPark()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("save park: %w", err)
	}
	a.log.Info("park saved", "path", path)
	return nil
}

// LoadPark replaces the park with the snapshot stored at path.
func (a *App) LoadPark(path string) CommandResult {
	data, err := os.ReadFile(path)
	if err != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return CommandResult{State: a.view(), Error: fmt.Sprintf("load park: %v", err)}
	}
	res := a.ImportPark(string(data))
	if res.Error == "" {
		a.log.Info("park loaded", "path", path)
	}
	return res
}

var errNoWindow = errors.New("no window to show a dialog in")

var parkFilters = []runtime.FileFilter{{DisplayName: "Park snapshots (*.json)", Pattern: "*.json"}}

// SaveParkAs asks for a file name and saves the park there. It returns the
// chosen path, or "" when the dialog was dismissed.
func (a *App) SaveParkAs() (string, error) {
	if a.ctx == nil {
		return "", errNoWindow
	}
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save park",
		DefaultFilename: "park.json",
		Filters:         parkFilters,
	})
	if err != nil || path == "" {
		return "", err
	}
	return path, a.SavePark(path)
}

// OpenPark asks for a snapshot file and loads it.
func (a *App) OpenPark() CommandResult {
	if a.ctx == nil {
		return CommandResult{State: a.State(), Error: errNoWindow.Error()}
	}
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Open park",
		Filters: parkFilters,
	})
	if err != nil {
		return CommandResult{State: a.State(), Error: err.Error()}
	}
	if path == "" {
		return CommandResult{State: a.State()}
	}
	return a.LoadPark(path)
}

// view builds the frontend view of the editor. Callers hold a.mu.
func (a *App) view() ViewState {
	ed := a.editor
	v := ViewState{
		Mode:      ed.State().String(),
		Direction: ed.Direction().String(),
		Slope:     ed.Slope().String(),
		Rotation:  ed.PlacementRotation(),
		Rides:     []RideView{},
	}
	for i, r := range ed.Park().Rides() {
		v.Rides = append(v.Rides, rideView(r, colorPalette[i%len(colorPalette)]))
	}
	if c, ok := ed.Cursor(); ok {
		cv := &CursorView{Ride: c.Ride.String(), Node: c.Node.String()}
		if r, ok := ed.Park().Ride(c.Ride); ok {
			if n, ok := r.Node(c.Node); ok {
				cv.Position = n.Position
			}
		}
		v.Cursor = cv
	}
	if p, ok := ed.Preview(); ok {
		pv := &PreviewView{
			ControlPoints: p.Segment.ControlPoints,
			End:           p.EndPose.Position,
			Blocked:       p.Blocked(),
		}
		if p.Merging() {
			pv.SnapTarget = p.SnapTarget.String()
		}
		if p.Err != nil {
			pv.Reason = p.Err.Error()
		}
		v.Preview = pv
	}
	if s, ok := ed.Selection(); ok {
		v.Selection = &SelectionView{
			Ride:      s.Ride.String(),
			Segment:   s.Segment.String(),
			CanResume: ed.CanResume(),
		}
	}
	if id, ok := ed.Completed(); ok {
		v.Completed = id.String()
	}
	return v
}

func rideView(r *graph.Ride, color string) RideView {
	rv := RideView{
		ID:        r.ID().String(),
		Name:      r.Name(),
		Complete:  r.Complete(),
		Color:     color,
		Stats:     r.Stats(),
		Nodes:     r.Nodes(),
		Segments:  r.Segments(),
		OpenNodes: []graph.NodeID{},
		Findings:  []string{},
	}
	for _, o := range r.OpenNodes() {
		rv.OpenNodes = append(rv.OpenNodes, o.Node.ID)
	}
	for _, f := range graph.Validate(r) {
		rv.Findings = append(rv.Findings, f.Error())
	}
	return rv
}

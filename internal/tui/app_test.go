package tui

import (
	"context"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/luck"
	"github.com/gravitas-games/cachegrid/internal/merge"
	"github.com/gravitas-games/cachegrid/internal/play"
	"github.com/gravitas-games/cachegrid/internal/store"
)

type fakeLuck map[grid.Coord]float64

func (f fakeLuck) Luck(c grid.Coord, tag string) float64 {
	initial, ok := f[c]
	if tag == luck.TagInitialValue {
		return initial
	}
	if ok {
		return 0
	}
	return 0.99
}

var (
	north = grid.Coord{I: 0, J: -1}  // baseline 2, one row above the start cell
	east  = grid.Coord{I: -1, J: 0}  // baseline 2, one column right of the start cell
	world = fakeLuck{north: 0.5, east: 0.6}
)

func newApp(t *testing.T, chime func(merge.Result)) (*App, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(40, 11)

	var opts []Option
	if chime != nil {
		opts = append(opts, WithChime(chime))
	}
	app := New(screen, opts...)

	cfg := config.GameConfig{TileDegrees: 1, SpawnProbability: 0.1, ViewRadius: 3, InteractRadius: 3, WinThreshold: 16}
	game := play.New(cfg, store.New(store.NewMemory()), app, world)
	app.Attach(game)
	if err := game.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return app, screen
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func press(t *testing.T, app *App, ev tcell.Event) bool {
	t.Helper()
	quit, err := app.HandleEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	return quit
}

func runeAt(screen tcell.Screen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestRendererTracksCaches(t *testing.T) {
	app, _ := newApp(t, nil)
	if v, ok := app.Shown(north); !ok || v != 2 {
		t.Fatalf("expected north cache shown with 2, got %d ok=%v", v, ok)
	}

	// Walk far enough west that both caches leave the view.
	for i := 0; i < 8; i++ {
		press(t, app, key('a'))
	}
	if _, ok := app.Shown(north); ok {
		t.Fatal("north cache should be hidden")
	}
	if _, ok := app.Shown(east); ok {
		t.Fatal("east cache should be hidden")
	}
}

func TestDrawPlacesPlayerAndCaches(t *testing.T) {
	app, screen := newApp(t, nil)
	if err := app.Draw(context.Background()); err != nil {
		t.Fatalf("draw: %v", err)
	}

	// 40x11: 10 rows of grid, 10 cells per row, player at row 5, cell column 5.
	px, py := 5*cellWidth, 5
	if got := runeAt(screen, px+1, py); got != playerRune {
		t.Fatalf("expected player at (%d,%d), got %q", px+1, py, got)
	}
	// North cache is one row up.
	if got := runeAt(screen, px+2, py-1); got != '2' {
		t.Fatalf("expected north cache value above player, got %q", got)
	}
	// East cache is one cell to the right.
	if got := runeAt(screen, px+cellWidth+2, py); got != '2' {
		t.Fatalf("expected east cache value right of player, got %q", got)
	}
}

func TestTakeAndMergeWithCursor(t *testing.T) {
	var results []merge.Result
	app, _ := newApp(t, func(r merge.Result) { results = append(results, r) })

	press(t, app, tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	press(t, app, key('t'))
	if v, _ := app.Shown(north); v != 0 {
		t.Fatalf("north cache should be emptied, shows %d", v)
	}

	press(t, app, tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	press(t, app, tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	press(t, app, key('p'))
	if v, _ := app.Shown(east); v != 4 {
		t.Fatalf("east cache should hold the merged 4, shows %d", v)
	}

	if len(results) != 2 || results[0].Outcome != merge.Taken || results[1].Outcome != merge.Merged {
		t.Fatalf("unexpected results %+v", results)
	}
	if app.status != results[1].Status() {
		t.Fatalf("status line should show the last result, got %q", app.status)
	}

	press(t, app, key('r'))
	if v, _ := app.Shown(north); v != 2 {
		t.Fatalf("reset should restore north to 2, shows %d", v)
	}
}

func TestQuitKeys(t *testing.T) {
	app, _ := newApp(t, nil)
	if press(t, app, key('x')) {
		t.Fatal("unbound key must not quit")
	}
	for _, ev := range []tcell.Event{
		key('q'),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone),
	} {
		if !press(t, app, ev) {
			t.Fatalf("expected %v to quit", ev)
		}
	}
}

func TestTone(t *testing.T) {
	tests := []struct {
		res   merge.Result
		notes int
	}{
		{merge.Result{Outcome: merge.Taken}, 1},
		{merge.Result{Outcome: merge.Merged}, 2},
		{merge.Result{Outcome: merge.Merged, Won: true}, 4},
		{merge.Result{Outcome: merge.TooFar}, 1},
		{merge.Result{Outcome: merge.NoCache}, 0},
	}
	for _, tt := range tests {
		s := Tone(tt.res)
		if tt.notes == 0 {
			if s != nil {
				t.Errorf("%v: expected silence", tt.res.Outcome)
			}
			continue
		}
		if got, want := streamLen(s), tt.notes*SampleRate.N(noteLength); got != want {
			t.Errorf("%v: streamed %d samples, want %d", tt.res.Outcome, got, want)
		}
	}
}

func streamLen(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}

// Package tui is a terminal host for one player's game: it draws the caches
// around the player with tcell and maps keys to game actions.
package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/merge"
	"github.com/gravitas-games/cachegrid/internal/play"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	// Columns per grid cell on screen.
	cellWidth = 4

	playerRune = '@'
	emptyRune  = '·'
)

var (
	styleGrid    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleEmpty   = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
	stylePlayer  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleWinning = tcell.StyleDefault.Foreground(tcell.ColorGold).Bold(true)
)

// App owns the screen. It is also the game's renderer: caches shown by the
// game map are tracked here and drawn on the next frame.
type App struct {
	screen tcell.Screen
	game   *play.Game

	caches map[grid.Coord]int
	cursor grid.Coord // offset from the player's cell
	status string
	chime  func(merge.Result)

	log *logrus.Entry
}

// Option configures an App.
type Option func(*App)

// WithChime is called with every take/place result.
func WithChime(fn func(merge.Result)) Option {
	return func(a *App) { a.chime = fn }
}

// New returns an app drawing on screen. Attach a game before running.
func New(screen tcell.Screen, opts ...Option) *App {
	a := &App{
		screen: screen,
		caches: make(map[grid.Coord]int),
		chime:  func(merge.Result) {},
		log:    logger.Component("tui"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach binds the game whose renderer is a.
func (a *App) Attach(game *play.Game) { a.game = game }

func (a *App) ShowCell(c grid.Coord, _ grid.Bounds, value int) { a.caches[c] = value }
func (a *App) HideCell(c grid.Coord)                           { delete(a.caches, c) }
func (a *App) UpdateCellValue(c grid.Coord, value int)         { a.caches[c] = value }

// Shown returns the value drawn for c, if a cache is shown there.
func (a *App) Shown(c grid.Coord) (int, bool) {
	v, ok := a.caches[c]
	return v, ok
}

// Run polls events until the player quits or the screen is finalised.
func (a *App) Run(ctx context.Context) error {
	if err := a.Draw(ctx); err != nil {
		return err
	}
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		quit, err := a.HandleEvent(ctx, ev)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		if err := a.Draw(ctx); err != nil {
			return err
		}
	}
}

// HandleEvent applies one terminal event and reports whether to quit.
func (a *App) HandleEvent(ctx context.Context, ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return false, nil
}

func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) (bool, error) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true, nil
	case tcell.KeyUp:
		a.cursor.I++
		return false, nil
	case tcell.KeyDown:
		a.cursor.I--
		return false, nil
	case tcell.KeyLeft:
		a.cursor.J--
		return false, nil
	case tcell.KeyRight:
		a.cursor.J++
		return false, nil
	case tcell.KeyRune:
	default:
		return false, nil
	}

	switch r := ev.Rune(); r {
	case 'q':
		return true, nil
	case 'w', 'a', 's', 'd':
		dir, _ := play.ParseDirection(string(r))
		if _, err := a.game.Move(ctx, dir); err != nil {
			return false, err
		}
		a.status = ""
	case 't', 'p':
		st, err := a.game.State(ctx)
		if err != nil {
			return false, err
		}
		target := st.Cell.Add(a.cursor)
		var res merge.Result
		if r == 't' {
			res, err = a.game.Take(ctx, target)
		} else {
			res, err = a.game.Place(ctx, target)
		}
		if err != nil {
			return false, err
		}
		a.status = res.Status()
		a.chime(res)
		a.log.WithFields(logrus.Fields{"outcome": res.Outcome.String(), "cell": target.String()}).Debug("Action")
	case 'r':
		if err := a.game.Reset(ctx); err != nil {
			return false, err
		}
		a.status = "Game reset"
	}
	return false, nil
}

// Draw renders one frame: the grid centred on the player and a status line.
func (a *App) Draw(ctx context.Context) error {
	st, err := a.game.State(ctx)
	if err != nil {
		return err
	}

	a.screen.Clear()
	w, h := a.screen.Size()
	rows := h - 1
	cols := w / cellWidth
	midRow, midCol := rows/2, cols/2

	for y := 0; y < rows; y++ {
		for col := 0; col < cols; col++ {
			off := grid.Coord{I: midRow - y, J: col - midCol}
			a.drawCell(col*cellWidth, y, st.Cell.Add(off), off, st.WinThreshold)
		}
	}

	status := a.status
	if status == "" {
		status = fmt.Sprintf("%d points accumulated", st.Inventory)
	}
	line := fmt.Sprintf(" %s | cell %s | wasd move, arrows aim, t take, p place, r reset, q quit", status, st.Cell)
	a.drawText(0, h-1, w, line, styleStatus)

	a.screen.Show()
	return nil
}

func (a *App) drawCell(x, y int, c, off grid.Coord, threshold int) {
	text := " " + string(emptyRune) + "  "
	style := styleGrid
	if v, ok := a.caches[c]; ok {
		switch {
		case v == 0:
			text, style = "  o ", styleEmpty
		case v >= threshold:
			text, style = fmt.Sprintf("%3d ", v), styleWinning
		default:
			text, style = fmt.Sprintf("%3d ", v), valueStyle(v)
		}
	}
	if off == (grid.Coord{}) {
		text, style = " "+string(playerRune)+"  ", stylePlayer
		if v, ok := a.caches[c]; ok {
			text = fmt.Sprintf("%c%2d ", playerRune, v)
		}
	}
	if off == a.cursor {
		style = style.Reverse(true)
	}
	a.drawText(x, y, cellWidth, text, style)
}

func (a *App) drawText(x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			break
		}
		a.screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		a.screen.SetContent(x+col, y, ' ', nil, style)
	}
}

func valueStyle(v int) tcell.Style {
	switch {
	case v <= 1:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case v <= 2:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case v <= 4:
		return tcell.StyleDefault.Foreground(tcell.ColorOrange)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
}

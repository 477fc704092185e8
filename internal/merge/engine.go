// Package merge holds the token transfer rules: taking a token from a cache
// into the single-slot inventory and placing or merging it back.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravitas-games/cachegrid/internal/gamemap"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/store"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultReach is how many tiles away, per axis, a cache can be taken from.
	DefaultReach = 3
	// DefaultWinThreshold is the token value that wins the game.
	DefaultWinThreshold = 16
)

// Engine applies take/place actions to the caches of one game map and the
// inventory slot held in its store.
type Engine struct {
	gameMap      *gamemap.GameMap
	store        *store.Store
	reach        float64
	winThreshold int
	log          *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithReach sets the interaction radius in tiles.
func WithReach(tiles float64) Option {
	return func(e *Engine) { e.reach = tiles }
}

// WithWinThreshold sets the winning token value.
func WithWinThreshold(v int) Option {
	return func(e *Engine) { e.winThreshold = v }
}

// New returns an engine over m and s. s must be the store backing m.
func New(m *gamemap.GameMap, s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		gameMap:      m,
		store:        s,
		reach:        DefaultReach,
		winThreshold: DefaultWinThreshold,
		log:          logger.Component("merge"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WinThreshold returns the configured winning value.
func (e *Engine) WinThreshold() int { return e.winThreshold }

// Inventory returns the held token, 0 when the slot is empty.
func (e *Engine) Inventory(ctx context.Context) (int, error) {
	v, _, err := e.store.Inventory(ctx)
	return v, err
}

// Take moves the token of the cache at c into the empty inventory slot.
// The player must be within reach of the cache.
func (e *Engine) Take(ctx context.Context, player grid.LatLng, c grid.Coord) (Result, error) {
	res := Result{Coord: c, Threshold: e.winThreshold}

	cell, ok := e.gameMap.Cell(c)
	if !ok {
		res.Outcome = NoCache
		return res, nil
	}
	held, value, err := e.read(ctx, cell)
	if err != nil {
		return res, err
	}
	res.Inventory, res.Value = held, value

	switch {
	case held != 0:
		res.Outcome = InventoryOccupied
		return res, nil
	case !e.gameMap.Layout().WithinReach(player, c, e.reach):
		res.Outcome = TooFar
		return res, nil
	case value <= 0:
		res.Outcome = NothingToTake
		return res, nil
	}

	if err := e.gameMap.SetValue(ctx, c, 0); err != nil {
		return res, fmt.Errorf("failed to take from %s: %w", c, err)
	}
	if err := e.store.SetInventory(ctx, value); err != nil {
		return res, e.rollback(ctx, c, value, fmt.Errorf("failed to take from %s: %w", c, err))
	}

	res.Outcome = Taken
	res.Inventory = value
	res.Value = 0
	res.Won = value == e.winThreshold
	e.logResult(res)
	return res, nil
}

// Place drops the held token into the cache at c: into an empty cache as
// is, onto an equal token as a merge that doubles it.
func (e *Engine) Place(ctx context.Context, c grid.Coord) (Result, error) {
	res := Result{Coord: c, Threshold: e.winThreshold}

	cell, ok := e.gameMap.Cell(c)
	if !ok {
		res.Outcome = NoCache
		return res, nil
	}
	held, value, err := e.read(ctx, cell)
	if err != nil {
		return res, err
	}
	res.Inventory, res.Value = held, value

	prev := value
	var next Outcome
	switch {
	case held == 0:
		res.Outcome = NothingToPlace
		return res, nil
	case value == 0:
		next = Placed
		value = held
	case value == held:
		next = Merged
		value *= 2
	default:
		res.Outcome = Rejected
		return res, nil
	}

	if err := e.gameMap.SetValue(ctx, c, value); err != nil {
		return res, fmt.Errorf("failed to place on %s: %w", c, err)
	}
	if err := e.store.ClearInventory(ctx); err != nil {
		return res, e.rollback(ctx, c, prev, fmt.Errorf("failed to place on %s: %w", c, err))
	}

	res.Outcome = next
	res.Value = value
	res.Inventory = 0
	res.Won = next == Merged && value == e.winThreshold
	e.logResult(res)
	return res, nil
}

// Reset clears every override and the inventory.
func (e *Engine) Reset(ctx context.Context) error {
	return e.gameMap.Reset(ctx)
}

// rollback restores the cache at c after the inventory write failed, so a
// token is never held and stored at once.
func (e *Engine) rollback(ctx context.Context, c grid.Coord, value int, cause error) error {
	if err := e.gameMap.SetValue(ctx, c, value); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to restore %s: %w", c, err))
	}
	return cause
}

func (e *Engine) read(ctx context.Context, cell *gamemap.Cell) (held, value int, err error) {
	held, _, err = e.store.Inventory(ctx)
	if err != nil {
		return 0, 0, err
	}
	value, err = cell.CurrentValue(ctx)
	if err != nil {
		return 0, 0, err
	}
	return held, value, nil
}

func (e *Engine) logResult(res Result) {
	entry := e.log.WithFields(logrus.Fields{
		"outcome":   res.Outcome.String(),
		"cell":      res.Coord.String(),
		"value":     res.Value,
		"inventory": res.Inventory,
	})
	if res.Won {
		entry.Info("Win threshold reached")
		return
	}
	entry.Debug("Action applied")
}

// Package store keeps the flyweight state of the grid: token values only
// for coordinates whose value differs from the procedural baseline, plus
// the player's inventory slot and last position. A missing entry means
// "use the baseline".
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Backend is a durable string key-value store scoped to one namespace.
type Backend interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	// Clear drops every key in the backend's namespace.
	Clear(ctx context.Context) error
}

// ErrInvalidValue is returned when writing a negative token value.
var ErrInvalidValue = errors.New("token value must be non-negative")

const (
	cachePrefix  = "cache:"
	inventoryKey = "inventory"
	positionKey  = "position"
)

// Store is the flyweight state store.
type Store struct {
	backend Backend
	log     *logrus.Entry
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		log:     logger.Component("store"),
	}
}

// CacheKey returns the backend key for c. The separator keeps the mapping
// injective: (1,12) and (11,2) never share a key.
func CacheKey(c grid.Coord) string {
	return cachePrefix + strconv.Itoa(c.I) + ":" + strconv.Itoa(c.J)
}

// Get returns the override for c, if any. Entries that are not
// non-negative integers are treated as absent.
func (s *Store) Get(ctx context.Context, c grid.Coord) (int, bool, error) {
	key := CacheKey(c)
	return s.readValue(ctx, key)
}

// Set upserts the override for c.
func (s *Store) Set(ctx context.Context, c grid.Coord, value int) error {
	if value < 0 {
		return fmt.Errorf("failed to set %s: %w", c, ErrInvalidValue)
	}
	if err := s.backend.SetItem(ctx, CacheKey(c), strconv.Itoa(value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", c, err)
	}
	return nil
}

// Remove drops the override for c, reverting it to its baseline.
func (s *Store) Remove(ctx context.Context, c grid.Coord) error {
	if err := s.backend.RemoveItem(ctx, CacheKey(c)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", c, err)
	}
	return nil
}

// Clear drops all overrides, the inventory slot and the saved position.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	s.log.Debug("Store cleared")
	return nil
}

// Inventory returns the token held by the player, if any.
func (s *Store) Inventory(ctx context.Context) (int, bool, error) {
	v, ok, err := s.readValue(ctx, inventoryKey)
	if err != nil || !ok {
		return 0, false, err
	}
	if v == 0 {
		// A zero token is an empty slot.
		return 0, false, nil
	}
	return v, true, nil
}

// SetInventory puts value in the inventory slot.
func (s *Store) SetInventory(ctx context.Context, value int) error {
	if value < 0 {
		return fmt.Errorf("failed to set inventory: %w", ErrInvalidValue)
	}
	if value == 0 {
		return s.ClearInventory(ctx)
	}
	if err := s.backend.SetItem(ctx, inventoryKey, strconv.Itoa(value)); err != nil {
		return fmt.Errorf("failed to set inventory: %w", err)
	}
	return nil
}

// ClearInventory empties the inventory slot.
func (s *Store) ClearInventory(ctx context.Context) error {
	if err := s.backend.RemoveItem(ctx, inventoryKey); err != nil {
		return fmt.Errorf("failed to clear inventory: %w", err)
	}
	return nil
}

// Position returns the player's last saved position.
func (s *Store) Position(ctx context.Context) (grid.LatLng, bool, error) {
	raw, ok, err := s.backend.GetItem(ctx, positionKey)
	if err != nil {
		return grid.LatLng{}, false, fmt.Errorf("failed to read position: %w", err)
	}
	if !ok {
		return grid.LatLng{}, false, nil
	}
	p, err := parsePosition(raw)
	if err != nil {
		s.log.WithError(err).WithField("raw", raw).Warn("Ignoring malformed position")
		return grid.LatLng{}, false, nil
	}
	return p, true, nil
}

// SetPosition saves the player's position.
func (s *Store) SetPosition(ctx context.Context, p grid.LatLng) error {
	raw := strconv.FormatFloat(p.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'g', -1, 64)
	if err := s.backend.SetItem(ctx, positionKey, raw); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func (s *Store) readValue(ctx context.Context, key string) (int, bool, error) {
	raw, ok, err := s.backend.GetItem(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		s.log.WithFields(logrus.Fields{"key": key, "raw": raw}).Warn("Ignoring malformed stored value")
		return 0, false, nil
	}
	return v, true, nil
}

func parsePosition(raw string) (grid.LatLng, error) {
	lat, lng, found := strings.Cut(raw, ",")
	if !found {
		return grid.LatLng{}, fmt.Errorf("missing separator")
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return grid.LatLng{}, err
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return grid.LatLng{}, err
	}
	return grid.LatLng{Lat: la, Lng: lo}, nil
}

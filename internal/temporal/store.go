// Package temporal keeps versioned entity state as a "recent" table holding
// exactly one live row per logical key plus an append-only history table of
// closed validity intervals. It replaces the versioning triggers the schema
// used to rely on with explicit, transaction-scoped Go code.
package temporal

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Columns is embedded by every versioned model. PeriodEnd is nil for the
// current row (interval open towards +infinity) and set for history rows.
type Columns struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	PeriodStart time.Time  `gorm:"index" json:"period_start"`
	PeriodEnd   *time.Time `gorm:"index" json:"period_end,omitempty"`
}

// Temporal returns the embedded columns; it is how the store reaches into a
// concrete model.
func (c *Columns) Temporal() *Columns { return c }

// Snapshot is implemented by pointer types of versioned models.
type Snapshot[T any] interface {
	*T
	Temporal() *Columns
	// Key identifies the logical entity (e.g. player, or player+song+
	// difficulty) as gorm where-conditions.
	Key() map[string]any
	// EqualTo compares payload fields only, ignoring Columns.
	EqualTo(*T) bool
}

// Store binds one entity family to its recent/history table pair. All
// methods run on the *gorm.DB they are given, so callers decide the
// transaction boundary.
type Store[T any, PT Snapshot[T]] struct {
	recent  string
	history string
}

func NewStore[T any, PT Snapshot[T]](recent, history string) Store[T, PT] {
	return Store[T, PT]{recent: recent, history: history}
}

// UpsertCurrent makes snap the current row for its key at instant now.
// A missing key inserts [now, +inf). Identical payload fields are a no-op,
// so history only records real changes. Otherwise the old row is archived
// with its interval closed at now and the recent row is replaced in place.
func (s Store[T, PT]) UpsertCurrent(tx *gorm.DB, snap PT, now time.Time) error {
	var cur T
	err := tx.Table(s.recent).Where(snap.Key()).Take(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cols := snap.Temporal()
		cols.ID = 0
		cols.PeriodStart = now
		cols.PeriodEnd = nil
		return tx.Table(s.recent).Create(snap).Error
	}
	if err != nil {
		return err
	}
	if snap.EqualTo(&cur) {
		return nil
	}

	hist := cur
	end := now
	hcols := PT(&hist).Temporal()
	hcols.ID = 0
	hcols.PeriodEnd = &end
	if err := tx.Table(s.history).Create(&hist).Error; err != nil {
		return err
	}

	cols := snap.Temporal()
	cols.ID = PT(&cur).Temporal().ID
	cols.PeriodStart = now
	cols.PeriodEnd = nil
	return tx.Table(s.recent).Save(snap).Error
}

// DeleteCurrent retires the current row for key: its interval is closed at
// now into history and the recent row is removed. Returns
// gorm.ErrRecordNotFound when no current row exists.
func (s Store[T, PT]) DeleteCurrent(tx *gorm.DB, key map[string]any, now time.Time) error {
	var cur T
	if err := tx.Table(s.recent).Where(key).Take(&cur).Error; err != nil {
		return err
	}

	hist := cur
	end := now
	hcols := PT(&hist).Temporal()
	id := hcols.ID
	hcols.ID = 0
	hcols.PeriodEnd = &end
	if err := tx.Table(s.history).Create(&hist).Error; err != nil {
		return err
	}
	return tx.Table(s.recent).Delete(new(T), "id = ?", id).Error
}

// GetCurrent fetches the current row for key, or gorm.ErrRecordNotFound.
func (s Store[T, PT]) GetCurrent(tx *gorm.DB, key map[string]any) (PT, error) {
	var row T
	if err := tx.Table(s.recent).Where(key).Take(&row).Error; err != nil {
		return nil, err
	}
	return PT(&row), nil
}

// ListCurrent fetches every current row matching scope (typically a player
// id condition).
func (s Store[T, PT]) ListCurrent(tx *gorm.DB, scope map[string]any) ([]T, error) {
	var rows []T
	if err := tx.Table(s.recent).Where(scope).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AsOf reconstructs state at instant t. "after" holds the rows whose
// interval contains t — for a t beyond all data that is the current row,
// for a t before the first write it is empty. "before" holds rows whose
// interval ended exactly at t, so querying a recorded boundary yields a
// deterministic before/after pairing.
func (s Store[T, PT]) AsOf(tx *gorm.DB, scope map[string]any, t time.Time) (before, after []T, err error) {
	if err = tx.Table(s.history).Where(scope).
		Where("period_end = ?", t).
		Find(&before).Error; err != nil {
		return nil, nil, err
	}

	var live []T
	if err = tx.Table(s.recent).Where(scope).
		Where("period_start <= ?", t).
		Find(&live).Error; err != nil {
		return nil, nil, err
	}
	var closed []T
	if err = tx.Table(s.history).Where(scope).
		Where("period_start <= ? AND period_end > ?", t, t).
		Find(&closed).Error; err != nil {
		return nil, nil, err
	}
	after = append(live, closed...)
	return before, after, nil
}

// Boundaries lists every distinct interval start and (finite) end across
// recent and history rows matching scope, ascending.
func (s Store[T, PT]) Boundaries(tx *gorm.DB, scope map[string]any) ([]time.Time, error) {
	var stamps []time.Time
	for _, table := range []string{s.recent, s.history} {
		var starts []time.Time
		if err := tx.Table(table).Where(scope).
			Pluck("period_start", &starts).Error; err != nil {
			return nil, err
		}
		stamps = append(stamps, starts...)
	}
	var ends []time.Time
	if err := tx.Table(s.history).Where(scope).
		Where("period_end IS NOT NULL").
		Pluck("period_end", &ends).Error; err != nil {
		return nil, err
	}
	stamps = append(stamps, ends...)

	return dedupSorted(stamps), nil
}

func dedupSorted(stamps []time.Time) []time.Time {
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	out := stamps[:0]
	for _, ts := range stamps {
		if len(out) == 0 || !out[len(out)-1].Equal(ts) {
			out = append(out, ts)
		}
	}
	return out
}

// Package extras validates and tracks per-item modifier selections against
// their group constraints.
package extras

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/kwabenadev/chopdesk/internal/models"
)

// Selection is a group's current selection set, enriched with the group
// metadata consumers need to price and validate it.
type Selection struct {
	models.ExtrasSelection
}

// Engine tracks the selection set of each extras group. Every local mutation
// bumps the group's version; an external sync carrying an older version is
// ignored so the user's last action always wins.
type Engine struct {
	mu         sync.Mutex
	groups     map[string]models.ExtrasGroup
	selections map[string][]models.ExtrasOption
	versions   map[string]uint64

	// onChange receives the enriched selection after every mutation,
	// including when the set becomes empty.
	onChange func(Selection)
}

// NewEngine creates an engine over the given groups
func NewEngine(groups []models.ExtrasGroup, onChange func(Selection)) *Engine {
	e := &Engine{
		groups:     make(map[string]models.ExtrasGroup, len(groups)),
		selections: make(map[string][]models.ExtrasOption),
		versions:   make(map[string]uint64),
		onChange:   onChange,
	}
	for _, g := range groups {
		e.groups[g.ID] = g
	}
	return e
}

// SelectSingle replaces a single-choice group's selection with exactly the
// given option.
func (e *Engine) SelectSingle(groupID string, option models.ExtrasOption) error {
	e.mu.Lock()
	group, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown extras group %q", groupID)
	}
	e.selections[groupID] = []models.ExtrasOption{option}
	e.versions[groupID]++
	sel := e.enriched(group)
	e.mu.Unlock()

	e.report(sel)
	return nil
}

// SelectMultiple adds or removes an option from a multiple-choice group's
// set. The enriched set is reported on every change, even when it becomes
// empty, so consumers can recompute totals and validity.
func (e *Engine) SelectMultiple(groupID string, option models.ExtrasOption, included bool) error {
	e.mu.Lock()
	group, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown extras group %q", groupID)
	}
	current := e.selections[groupID]
	next := current[:0:0]
	for _, o := range current {
		if o.ID != option.ID {
			next = append(next, o)
		}
	}
	if included {
		next = append(next, option)
	}
	e.selections[groupID] = next
	e.versions[groupID]++
	sel := e.enriched(group)
	e.mu.Unlock()

	e.report(sel)
	return nil
}

// SyncExternal applies a selection pushed from outside (e.g. a re-fetched
// item definition). It is applied only if its version is not older than the
// group's last local mutation.
func (e *Engine) SyncExternal(groupID string, options []models.ExtrasOption, version uint64) bool {
	e.mu.Lock()
	group, ok := e.groups[groupID]
	if !ok || version < e.versions[groupID] {
		e.mu.Unlock()
		return false
	}
	e.selections[groupID] = options
	e.versions[groupID] = version
	sel := e.enriched(group)
	e.mu.Unlock()

	e.report(sel)
	return true
}

// Version returns the group's current mutation version
func (e *Engine) Version(groupID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions[groupID]
}

// Selected returns the group's current selection set
func (e *Engine) Selected(groupID string) []models.ExtrasOption {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ExtrasOption, len(e.selections[groupID]))
	copy(out, e.selections[groupID])
	return out
}

// Validate checks every known group's selection against its constraints and
// returns a group-id to error-message map for display. It does not mutate
// selections.
func (e *Engine) Validate() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make(map[string]string)
	for id, group := range e.groups {
		if msg := validateGroup(group, len(e.selections[id])); msg != "" {
			result[id] = msg
		}
	}
	return result
}

// ValidateAll checks arbitrary group/selection pairs without touching the
// engine's own state.
func ValidateAll(groups []models.ExtrasGroup, selections map[string][]models.ExtrasOption) map[string]string {
	result := make(map[string]string)
	for _, group := range groups {
		if msg := validateGroup(group, len(selections[group.ID])); msg != "" {
			result[group.ID] = msg
		}
	}
	return result
}

func validateGroup(group models.ExtrasGroup, size int) string {
	if group.Required && size == 0 {
		return group.Title + " requires a selection"
	}
	if group.ExtrasType == models.ExtrasSingle {
		if size > 1 {
			return group.Title + " allows only one selection"
		}
		return ""
	}
	// The minimum applies only once the group participates: an optional
	// group with nothing selected is valid regardless of its minimum.
	if group.MinSelection != nil && size > 0 && size < *group.MinSelection {
		return group.Title + " needs at least " + strconv.Itoa(*group.MinSelection) + " selections"
	}
	if group.MaxSelection != nil && size > *group.MaxSelection {
		return group.Title + " allows at most " + strconv.Itoa(*group.MaxSelection) + " selections"
	}
	return ""
}

func (e *Engine) enriched(group models.ExtrasGroup) Selection {
	options := make([]models.ExtrasOption, len(e.selections[group.ID]))
	copy(options, e.selections[group.ID])
	return Selection{ExtrasSelection: models.ExtrasSelection{
		GroupID:      group.ID,
		GroupTitle:   group.Title,
		ExtrasType:   group.ExtrasType,
		Required:     group.Required,
		MinSelection: group.MinSelection,
		MaxSelection: group.MaxSelection,
		Options:      options,
	}}
}

func (e *Engine) report(sel Selection) {
	if e.onChange != nil {
		e.onChange(sel)
	}
}

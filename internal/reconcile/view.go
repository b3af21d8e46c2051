// Package reconcile keeps an in-memory ordered list consistent with a remote
// collection by overlaying change-feed events on an initial bulk fetch.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

// InsertPolicy fixes where an inserted entity lands in the ordered list.
type InsertPolicy int

const (
	// Prepend suits lists ordered newest-first.
	Prepend InsertPolicy = iota
	// Append suits lists ordered oldest-first.
	Append
)

// ApplyEvent is the pure reducer over one ordered list. The input list is
// never mutated; the returned slice is the input when the event is a no-op.
//
//   - Insert: replace in place when the id is already present (duplicate
//     delivery is idempotent), otherwise prepend or append per policy.
//   - Update: replace the matching entity; absent ids are no-ops, the entity
//     may belong to a filtered-out page.
//   - Delete: remove the matching entity; no-op when absent.
func ApplyEvent[T any](list []T, event domain.ChangeEvent, id func(T) int64, policy InsertPolicy) []T {
	switch event.Type {
	case domain.EventInsert:
		item, ok := decodeRecord[T](event.New)
		if !ok {
			return list
		}
		if index := indexOf(list, id, id(item)); index >= 0 {
			return replaceAt(list, index, item)
		}
		result := make([]T, 0, len(list)+1)
		if policy == Prepend {
			result = append(result, item)
			result = append(result, list...)
		} else {
			result = append(result, list...)
			result = append(result, item)
		}
		return result

	case domain.EventUpdate:
		item, ok := decodeRecord[T](event.New)
		if !ok {
			return list
		}
		index := indexOf(list, id, id(item))
		if index < 0 {
			return list
		}
		return replaceAt(list, index, item)

	case domain.EventDelete:
		index := indexOf(list, id, event.EntityID())
		if index < 0 {
			return list
		}
		result := make([]T, 0, len(list)-1)
		result = append(result, list[:index]...)
		result = append(result, list[index+1:]...)
		return result

	default:
		return list
	}
}

func decodeRecord[T any](raw json.RawMessage) (T, bool) {
	var item T
	if len(raw) == 0 {
		return item, false
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, false
	}
	return item, true
}

func indexOf[T any](list []T, id func(T) int64, target int64) int {
	if target == 0 {
		return -1
	}
	for i, item := range list {
		if id(item) == target {
			return i
		}
	}
	return -1
}

func replaceAt[T any](list []T, index int, item T) []T {
	result := make([]T, len(list))
	copy(result, list)
	result[index] = item
	return result
}

// View owns one reconciled list. Apply and List may be called from different
// goroutines; the reducer itself stays pure.
type View[T any] struct {
	id     func(T) int64
	policy InsertPolicy

	mu   sync.Mutex
	list []T
}

func NewView[T any](id func(T) int64, policy InsertPolicy) *View[T] {
	return &View[T]{id: id, policy: policy}
}

// Initialize replaces the list with one bulk fetch. On error the previous
// list is kept and the error surfaces to the caller, who treats the view as
// empty.
func (v *View[T]) Initialize(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	list, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("initialize view: %w", err)
	}
	v.mu.Lock()
	v.list = list
	v.mu.Unlock()
	return nil
}

func (v *View[T]) Apply(event domain.ChangeEvent) {
	v.mu.Lock()
	v.list = ApplyEvent(v.list, event, v.id, v.policy)
	v.mu.Unlock()
}

// List returns a copy of the current list.
func (v *View[T]) List() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	result := make([]T, len(v.list))
	copy(result, v.list)
	return result
}

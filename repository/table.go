package repository

import (
	"slices"
	"sync"
)

// table is one in-memory collection. The lock guards both the rows and the
// id counter, so ids are unique and strictly increasing.
type table[T any] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*T
	order  []int64
	clone  func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &table[T]{
		nextID: 1,
		rows:   make(map[int64]*T),
		clone:  clone,
	}
}

// insert assigns the next id, stores the row built for it and returns a copy
func (t *table[T]) insert(build func(id int64) T) T {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++

	row := build(id)
	t.rows[id] = &row
	t.order = append(t.order, id)
	return t.clone(row)
}

func (t *table[T]) get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(*row), true
}

// find returns the first row in insertion order matching fn
func (t *table[T]) find(fn func(*T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		if row := t.rows[id]; fn(row) {
			return t.clone(*row), true
		}
	}
	var zero T
	return zero, false
}

// list returns copies of all rows in insertion order
func (t *table[T]) list() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.clone(*t.rows[id]))
	}
	return out
}

// update applies fn to the stored row under the write lock
func (t *table[T]) update(id int64, fn func(*T)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return false
	}
	fn(row)
	return true
}

// remove deletes the row; the id is never handed out again
func (t *table[T]) remove(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return true
}

// each calls fn for every row in insertion order under the read lock
func (t *table[T]) each(fn func(*T)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		fn(t.rows[id])
	}
}

func (t *table[T]) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

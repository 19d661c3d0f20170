// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"maps"
	"sync"
)

// Map is a map guarded by a read/write mutex, tuned for read-mostly access.
type Map[T comparable, K any] struct {
	m     map[T]K
	mutex *sync.RWMutex
}

func NewMap[T comparable, K any]() *Map[T, K] {
	return &Map[T, K]{
		m:     make(map[T]K),
		mutex: &sync.RWMutex{},
	}
}

func NewMapFromMap[T comparable, K any](m map[T]K) *Map[T, K] {
	return &Map[T, K]{
		m:     m,
		mutex: &sync.RWMutex{},
	}
}

func (m *Map[T, K]) Get(key T) (K, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok := m.m[key]
	return value, ok
}

func (m *Map[T, K]) Set(key T, value K) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.m[key] = value
}

// GetOrSet stores value under key unless the key is already present. It
// returns the value held by the map after the call, and whether it was
// already there.
func (m *Map[T, K]) GetOrSet(key T, value K) (K, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if existing, ok := m.m[key]; ok {
		return existing, true
	}
	m.m[key] = value
	return value, false
}

func (m *Map[T, K]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.m)
}

func (m *Map[T, K]) GetMap() map[T]K {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make(map[T]K, len(m.m))
	maps.Copy(result, m.m)
	return result
}

package main

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// ObservationSet maps a key to every value observed for it.
// It is not safe for concurrent use: a partial set is owned by the worker
// that parsed it until it is handed over to the fold.
type ObservationSet struct {
	m     *swiss.Map[string, []float64]
	count int
}

func NewObservationSet() *ObservationSet {
	return &ObservationSet{
		m: swiss.NewMap[string, []float64](1000),
	}
}

func (s *ObservationSet) Add(key string, value float64) {
	values, _ := s.m.Get(key)
	s.m.Put(key, append(values, value))
	s.count++
}

// Merge moves all values of partial into s. partial must not be used
// afterwards since s may share its value slices. Merging s into itself
// is a no-op.
func (s *ObservationSet) Merge(partial *ObservationSet) {
	if partial == s {
		return
	}
	partial.m.Iter(func(key string, values []float64) bool {
		if mine, ok := s.m.Get(key); ok {
			s.m.Put(key, append(mine, values...))
		} else {
			s.m.Put(key, values)
		}
		return false
	})
	s.count += partial.count
	partial.m.Clear()
	partial.count = 0
}

func (s *ObservationSet) Values(key string) []float64 {
	values, _ := s.m.Get(key)
	return values
}

// Len is the number of distinct keys.
func (s *ObservationSet) Len() int {
	return s.m.Count()
}

// Count is the number of values over all keys.
func (s *ObservationSet) Count() int {
	return s.count
}

func (s *ObservationSet) Keys() []string {
	keys := make([]string, 0, s.m.Count())
	s.m.Iter(func(key string, _ []float64) bool {
		keys = append(keys, key)
		return false
	})
	slices.Sort(keys)
	return keys
}

func (s *ObservationSet) each(fn func(key string, values []float64)) {
	s.m.Iter(func(key string, values []float64) bool {
		fn(key, values)
		return false
	})
}

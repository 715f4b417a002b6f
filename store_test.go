package main

import (
	"reflect"
	"sort"
	"testing"
)

// checkStore compares store against expected ignoring the order of values
// within a key.
func checkStore(t *testing.T, store *ObservationSet, expected map[string][]float64) {
	t.Helper()
	if store.Len() != len(expected) {
		t.Errorf("got %d keys %v, expected %d", store.Len(), store.Keys(), len(expected))
	}
	total := 0
	for name, want := range expected {
		got := append([]float64(nil), store.Values(name)...)
		want = append([]float64(nil), want...)
		sort.Float64s(got)
		sort.Float64s(want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%q: got %v, expected %v", name, got, want)
		}
		total += len(want)
	}
	if store.Count() != total {
		t.Errorf("got %d values, expected %d", store.Count(), total)
	}
}

func storeOf(lines ...string) *ObservationSet {
	store := NewObservationSet()
	for _, line := range lines {
		item, err := ParseLine([]byte(line))
		if err != nil {
			panic(err)
		}
		store.Add(string(item.name), item.value)
	}
	return store
}

func TestObservationSetAdd(t *testing.T) {
	store := NewObservationSet()
	store.Add("b", 2)
	store.Add("a", 1)
	store.Add("b", 3)

	if got := store.Values("b"); !reflect.DeepEqual(got, []float64{2, 3}) {
		t.Errorf("unexpected values %v", got)
	}
	if got := store.Values("missing"); got != nil {
		t.Errorf("expected no values, got %v", got)
	}
	if got := store.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected keys %v", got)
	}
	if store.Len() != 2 || store.Count() != 3 {
		t.Errorf("unexpected len %d count %d", store.Len(), store.Count())
	}
}

func TestObservationSetMerge(t *testing.T) {
	store := storeOf("a;1", "b;2")
	partial := storeOf("a;3", "c;4", "a;5")

	store.Merge(partial)
	checkStore(t, store, map[string][]float64{
		"a": {1, 3, 5},
		"b": {2},
		"c": {4},
	})
	if got := store.Values("a"); !reflect.DeepEqual(got, []float64{1, 3, 5}) {
		t.Errorf("merge must append in order, got %v", got)
	}
	if partial.Len() != 0 || partial.Count() != 0 {
		t.Errorf("merge must consume the partial set")
	}
}

func TestObservationSetMergeEmpty(t *testing.T) {
	store := storeOf("a;1")
	store.Merge(NewObservationSet())
	checkStore(t, store, map[string][]float64{"a": {1}})

	empty := NewObservationSet()
	empty.Merge(storeOf("a;1"))
	checkStore(t, empty, map[string][]float64{"a": {1}})
}

func TestObservationSetMergeCommutes(t *testing.T) {
	lines := []string{"a;1", "b;2", "a;3", "c;-4", "b;5", "a;1", "d;0.5", "c;7"}
	expected := map[string][]float64{
		"a": {1, 3, 1},
		"b": {2, 5},
		"c": {-4, 7},
		"d": {0.5},
	}

	partition := func() [3]*ObservationSet {
		return [3]*ObservationSet{
			storeOf(lines[:3]...),
			storeOf(lines[3:5]...),
			storeOf(lines[5:]...),
		}
	}

	for _, order := range [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	} {
		parts := partition()
		store := NewObservationSet()
		for _, i := range order {
			store.Merge(parts[i])
		}
		checkStore(t, store, expected)
	}

	// [A, B] then [C] against [C, A] then [B]
	p := partition()
	left := p[0]
	left.Merge(p[1])
	left.Merge(p[2])

	q := partition()
	right := q[2]
	right.Merge(q[0])
	right.Merge(q[1])

	if !reflect.DeepEqual(Reduce(left), Reduce(right)) {
		t.Errorf("merge order changed the result: %v != %v", Reduce(left), Reduce(right))
	}
}

func TestObservationSetMergeSelf(t *testing.T) {
	store := storeOf("a;1", "a;2", "b;3")
	store.Merge(store)
	checkStore(t, store, map[string][]float64{
		"a": {1, 2},
		"b": {3},
	})
}

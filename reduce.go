package main

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Summary struct {
	Min   float64
	Mean  float64
	Max   float64
	Count int
}

func summarize(values []float64) Summary {
	out := Summary{
		Min:   values[0],
		Max:   values[0],
		Count: len(values),
	}
	sum := 0.0
	for _, v := range values {
		sum += v
		if out.Min > v {
			out.Min = v
		}
		if out.Max < v {
			out.Max = v
		}
	}
	out.Mean = sum / float64(len(values))
	return out
}

// Reduce computes min, mean and max for every key of store.
// Keys are only ever added together with a value so no key is empty.
func Reduce(store *ObservationSet) map[string]Summary {
	out := make(map[string]Summary, store.Len())
	store.each(func(key string, values []float64) {
		out[key] = summarize(values)
	})
	return out
}

// Print writes summaries ordered by key as {name=min/mean/max, ...}.
func Print(w io.Writer, summaries map[string]Summary) error {
	names := maps.Keys(summaries)
	slices.Sort(names)

	bw := bufio.NewWriter(w)
	bw.WriteByte('{')
	for i, name := range names {
		if i != 0 {
			bw.WriteString(", ")
		}
		s := summaries[name]
		fmt.Fprintf(bw, "%s=%.1f/%.1f/%.1f", name, s.Min, s.Mean, s.Max)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

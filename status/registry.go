// Package status is a small metrics facade for blink components.
// Publishers cache metric pointers once and then write atomics directly;
// readers take a Snapshot.
package status

import (
	"fmt"
	"sync/atomic"
)

// Registry groups metric maps by value type
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// Len returns the number of metrics across all types
func (r *Registry) Len() int {
	return r.Bools.Len() + r.Ints.Len() + r.Floats.Len() + r.Strings.Len()
}

// Snapshot reads every metric into a plain map keyed by metric name
// Keys shared between types are suffixed with the type to stay distinct
func (r *Registry) Snapshot() map[string]any {
	out := make(map[string]any, r.Len())
	put := func(kind, key string, v any) {
		if _, dup := out[key]; dup {
			key = fmt.Sprintf("%s#%s", key, kind)
		}
		out[key] = v
	}

	r.Bools.Range(func(key string, v *atomic.Bool) { put("bool", key, v.Load()) })
	r.Ints.Range(func(key string, v *atomic.Int64) { put("int", key, v.Load()) })
	r.Floats.Range(func(key string, v *AtomicFloat) { put("float", key, v.Get()) })
	r.Strings.Range(func(key string, v *AtomicString) { put("string", key, v.Load()) })
	return out
}

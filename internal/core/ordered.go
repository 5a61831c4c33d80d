package core

// ordered.go implements the insertion-ordered maps used by Summary.
//
// encoding/json's map type loses key order, but type_distribution and
// avg_by_type must iterate in first-seen order of equipment type so
// that persisted summaries, chart legends, and PDF tables stay stable.
// Both types marshal to plain JSON objects and unmarshal back with the
// original key order intact (summaries round-trip through the store as
// serialized JSON).

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeCounts is a string-to-int map that remembers insertion order.
type TypeCounts struct {
	keys   []string
	counts map[string]int
}

// NewTypeCounts returns an empty ordered count map.
func NewTypeCounts() *TypeCounts {
	return &TypeCounts{counts: make(map[string]int)}
}

// Add increments the count for key, registering it on first sight.
func (tc *TypeCounts) Add(key string) {
	if _, ok := tc.counts[key]; !ok {
		tc.keys = append(tc.keys, key)
	}
	tc.counts[key]++
}

// Get returns the count for key and whether it is present.
func (tc *TypeCounts) Get(key string) (int, bool) {
	n, ok := tc.counts[key]
	return n, ok
}

// Keys returns the keys in first-seen order. The slice is shared; do
// not modify it.
func (tc *TypeCounts) Keys() []string { return tc.keys }

// Len returns the number of distinct keys.
func (tc *TypeCounts) Len() int { return len(tc.keys) }

// Total returns the sum of all counts.
func (tc *TypeCounts) Total() int {
	total := 0
	for _, k := range tc.keys {
		total += tc.counts[k]
	}
	return total
}

// MarshalJSON renders the counts as a JSON object in insertion order.
func (tc *TypeCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range tc.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", tc.counts[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the counts preserving the object's key order.
func (tc *TypeCounts) UnmarshalJSON(data []byte) error {
	tc.keys = nil
	tc.counts = make(map[string]int)

	return decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("count for %q: %w", key, err)
		}
		tc.keys = append(tc.keys, key)
		tc.counts[key] = n
		return nil
	})
}

// TypeMeans is a string-to-float64 map that remembers insertion order.
type TypeMeans struct {
	keys  []string
	means map[string]float64
}

// NewTypeMeans returns an empty ordered mean map.
func NewTypeMeans() *TypeMeans {
	return &TypeMeans{means: make(map[string]float64)}
}

// Set stores the mean for key, registering it on first sight.
func (tm *TypeMeans) Set(key string, v float64) {
	if _, ok := tm.means[key]; !ok {
		tm.keys = append(tm.keys, key)
	}
	tm.means[key] = v
}

// Get returns the mean for key and whether it is present.
func (tm *TypeMeans) Get(key string) (float64, bool) {
	v, ok := tm.means[key]
	return v, ok
}

// Keys returns the keys in first-seen order. The slice is shared; do
// not modify it.
func (tm *TypeMeans) Keys() []string { return tm.keys }

// Len returns the number of distinct keys.
func (tm *TypeMeans) Len() int { return len(tm.keys) }

// MarshalJSON renders the means as a JSON object in insertion order.
func (tm *TypeMeans) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range tm.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(tm.means[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the means preserving the object's key order.
func (tm *TypeMeans) UnmarshalJSON(data []byte) error {
	tm.keys = nil
	tm.means = make(map[string]float64)

	return decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("mean for %q: %w", key, err)
		}
		tm.keys = append(tm.keys, key)
		tm.means[key] = v
		return nil
	})
}

// decodeOrderedObject walks a JSON object token by token, invoking fn
// for each key in document order. fn must consume the value via dec.
func decodeOrderedObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}

	// Consume closing brace.
	_, err = dec.Token()
	return err
}

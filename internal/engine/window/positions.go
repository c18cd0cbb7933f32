// Package window computes which slice of a long list must be rendered to fill
// a scrollable viewport.
//
// The pure functions CalculatePositions and CalculateVisibleRange work on
// immutable snapshots and carry the algorithms. Calculator wraps them with
// the scroll, resize and list-change bookkeeping a list view needs.
package window

import (
	"math"
)

// Measurement is the laid-out position of one item.
// Bottom == Top + Height, and Top of item i equals Bottom of item i-1.
type Measurement struct {
	Key    string
	Index  int
	Height float64
	Top    float64
	Bottom float64
}

// Layout is the result of one positioning pass.
type Layout struct {
	Items       []Measurement
	ByKey       map[string]Measurement
	TotalHeight float64
}

// Measurer reports real rendered heights.
type Measurer interface {
	Measure(key string) (float64, bool)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(key string) (float64, bool)

// Measure calls f.
func (f MeasurerFunc) Measure(key string) (float64, bool) { return f(key) }

// Heights is a Measurer backed by a map of rendered heights.
type Heights map[string]float64

// Measure returns the height recorded for key.
func (h Heights) Measure(key string) (float64, bool) {
	v, ok := h[key]
	return v, ok
}

func usableHeight(h float64) bool {
	return h >= 0 && !math.IsNaN(h) && !math.IsInf(h, 0)
}

// CalculatePositions lays out keys top to bottom. Each item's height is, in
// order of preference, its measured height, the height of its entry in
// existing, or estimated. measured and existing may be nil.
func CalculatePositions(keys []string, measured Measurer, existing map[string]Measurement, estimated float64) Layout {
	if !usableHeight(estimated) {
		estimated = 0
	}

	layout := Layout{
		Items: make([]Measurement, len(keys)),
		ByKey: make(map[string]Measurement, len(keys)),
	}

	var offset float64
	for i, key := range keys {
		height := estimated
		if h, ok := measureKey(measured, key); ok {
			height = h
		} else if prev, ok := existing[key]; ok && usableHeight(prev.Height) {
			height = prev.Height
		}

		m := Measurement{
			Key:    key,
			Index:  i,
			Height: height,
			Top:    offset,
			Bottom: offset + height,
		}
		layout.Items[i] = m
		layout.ByKey[key] = m
		offset = m.Bottom
	}
	layout.TotalHeight = offset

	return layout
}

func measureKey(measured Measurer, key string) (float64, bool) {
	if measured == nil {
		return 0, false
	}
	h, ok := measured.Measure(key)
	if !ok || !usableHeight(h) {
		return 0, false
	}
	return h, true
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import "gonum.org/v1/gonum/stat"

// stillnessDetector classifies the device as motionless when the recent
// filtered-acceleration magnitudes are both small and steady.
type stillnessDetector struct {
	window      *Ring[float64]
	maxVariance float64
	maxMean     float64
}

func newStillnessDetector(size int, maxVariance, maxMean float64) stillnessDetector {
	return stillnessDetector{
		window:      NewRing[float64](size),
		maxVariance: maxVariance,
		maxMean:     maxMean,
	}
}

func (d *stillnessDetector) push(magnitude float64) {
	d.window.Push(magnitude)
}

// still needs a full window: fewer samples are not enough evidence.
func (d *stillnessDetector) still() bool {
	if !d.window.Full() {
		return false
	}
	mean, variance := stat.PopMeanVariance(d.window.Slice(), nil)
	return variance < d.maxVariance && mean < d.maxMean
}

func (d *stillnessDetector) reset() {
	d.window.Clear()
}

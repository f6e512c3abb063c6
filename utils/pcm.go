// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 clamps x to [-1, 1] and scales it so -1 maps to
// math.MinInt16 and 1 to math.MaxInt16, rounding to the nearest step.
func Float32ToInt16(x float32) int16 {
	v := float64(Clamp(x, -1, 1))
	if v < 0 {
		return int16(math.Round(v * 32768))
	}

	return int16(math.Round(v * 32767))
}

// Int16ToFloat32 is the inverse of Float32ToInt16.
func Int16ToFloat32(v int16) float32 {
	if v < 0 {
		return float32(v) / 32768
	}

	return float32(v) / 32767
}

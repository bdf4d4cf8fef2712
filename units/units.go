// Package units renders raw counters into human-scaled strings for the
// readable half of Meter/Watcher emissions. It plays no role in the
// encoded form or in round-trip correctness (spec.md §4.7) — purely a
// presentation concern.
package units

import (
	"fmt"
	"math"
)

type scale struct {
	factor float64
	suffix string
}

var byteScales = []scale{
	{1, "B"}, {1024, "KB"}, {1024 * 1024, "MB"}, {1024 * 1024 * 1024, "GB"}, {1024 * 1024 * 1024 * 1024, "TB"},
}

var nanoScales = []scale{
	{1, "ns"}, {1e3, "µs"}, {1e6, "ms"}, {1e9, "s"}, {60 * 1e9, "min"}, {3600 * 1e9, "h"},
}

var countScales = []scale{
	{1, ""}, {1e3, "K"}, {1e6, "M"}, {1e9, "B"},
}

// pick returns the largest scale whose rollover threshold, factor +
// factor/10, value reaches, so values up to 1099 (in units of 1000) stay in
// the smaller unit per spec.md's testable property 6.
func pick(scales []scale, value float64) (chosen scale, idx int) {
	idx = 0
	for i := 1; i < len(scales); i++ {
		threshold := scales[i].factor + scales[i].factor/10
		if value < threshold {
			break
		}
		idx = i
	}
	return scales[idx], idx
}

func render(scales []scale, value float64) string {
	neg := value < 0
	abs := math.Abs(value)
	chosen, _ := pick(scales, abs)
	scaledAbs := abs / chosen.factor
	if neg {
		scaledAbs = -scaledAbs
	}
	if chosen.suffix == "" {
		return fmt.Sprintf("%.1f", scaledAbs)
	}
	return fmt.Sprintf("%.1f%s", scaledAbs, chosen.suffix)
}

// Bytes renders a byte count, e.g. Bytes(2048) == "2.0KB".
func Bytes(n int64) string { return render(byteScales, float64(n)) }

// Nanoseconds renders a nanosecond duration.
func Nanoseconds(n int64) string { return render(nanoScales, float64(n)) }

// NanosecondsFloat renders a (possibly fractional) nanosecond duration.
func NanosecondsFloat(n float64) string { return render(nanoScales, n) }

// Iterations renders an iteration count, e.g. Iterations(2_500_000) == "2.5M".
func Iterations(n int64) string { return render(countScales, float64(n)) }

// IterationsPerSecond renders a rate, e.g. IterationsPerSecond(1500) == "1.5K/s".
func IterationsPerSecond(n float64) string {
	return render(countScales, n) + "/s"
}

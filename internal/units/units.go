// Package units provides shared helpers for turning metric obstacle
// geometry into short spoken phrases.
package units

import (
	"fmt"
	"math"
)

// Direction sector boundaries in radians. Direction 0 is straight ahead,
// negative is to the user's left, positive to the right.
const (
	aheadSector  = 15 * math.Pi / 180
	slightSector = 45 * math.Pi / 180
)

// DescribeDirection converts a bearing in radians into a spoken phrase.
func DescribeDirection(radians float64) string {
	abs := math.Abs(radians)
	switch {
	case abs < aheadSector:
		return "ahead"
	case abs < slightSector:
		if radians < 0 {
			return "slightly left"
		}
		return "slightly right"
	default:
		if radians < 0 {
			return "to your left"
		}
		return "to your right"
	}
}

// DescribeDistance converts a distance in meters into a spoken phrase.
// Distances are deliberately coarse: sub-meter precision is noise when
// spoken aloud.
func DescribeDistance(meters float64) string {
	switch {
	case meters < 0.75:
		return "very close"
	case meters < 1.5:
		return "one meter away"
	default:
		return fmt.Sprintf("%d meters away", int(math.Round(meters)))
	}
}

// SignatureDistance truncates a distance to the integer bucket used for
// announcement deduplication signatures.
func SignatureDistance(meters float64) int {
	if meters < 0 {
		return 0
	}
	return int(meters)
}

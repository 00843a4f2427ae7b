package sensor

// Weights are the distances in micrometres of each sensor from the center
// of the array, bit 0 first. Negative is to the right.
var Weights = [8]int32{-33400, -23800, -14300, -4800, 4800, 14300, 23800, 33400}

// Position returns the average of the weights of the sensors which see the
// line. It reports false when no sensor sees the line.
func Position(r Reading) (int32, bool) {
	var sum int32
	count := int32(0)
	for n := uint(0); n < 8; n++ {
		if r&(1<<n) != 0 {
			sum += Weights[n]
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / count, true
}

// Center returns the two middle bits of the reading.
func Center(r Reading) uint8 {
	return (uint8(r) & 0x18) >> 3
}

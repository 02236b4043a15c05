package tensor

// Scale multiplies every element of x by s.
func Scale(x []float32, s float32) {
	for i := range x {
		x[i] *= s
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Mix writes dry*(1-wet) + processed*wet into dst.
func Mix(dst, dry, processed []float32, wet float32) {
	for i := range dst {
		dst[i] = dry[i]*(1-wet) + processed[i]*wet
	}
}

// Clamp limits every element of x to [lo, hi].
func Clamp(x []float32, lo, hi float32) {
	for i, v := range x {
		switch {
		case v < lo:
			x[i] = lo
		case v > hi:
			x[i] = hi
		}
	}
}

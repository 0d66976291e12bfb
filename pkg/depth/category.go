package depth

// Category returns a human-readable distance band for display.
func Category(meters float64) string {
	if meters <= 0 {
		return "unknown"
	}
	if meters < 0.25 {
		return "very close"
	}
	if meters < 0.5 {
		return "close"
	}
	if meters <= 1.0 {
		return "near"
	}
	if meters < 2.0 {
		return "nearby"
	}
	return "far"
}

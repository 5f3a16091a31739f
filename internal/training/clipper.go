package training

// GradientClipper rescales gradients to a bounded global norm. The clip
// decision uses the global norm over the full gradient structure, never
// per-layer norms, so the update direction is preserved.
type GradientClipper struct {
	maxNorm float64
}

// NewGradientClipper creates a clipper bounding the global L2 norm
func NewGradientClipper(maxNorm float64) *GradientClipper {
	return &GradientClipper{maxNorm: maxNorm}
}

// Clip scales every gradient entry by maxNorm/norm when the global norm
// exceeds maxNorm, and leaves the gradients untouched otherwise. Returns
// the pre-clip norm and whether clipping was applied.
func (c *GradientClipper) Clip(grads *Gradients) (float64, bool) {
	norm := GradientNorm(grads)
	if c.maxNorm <= 0 || norm <= c.maxNorm {
		return norm, false
	}
	grads.Scale(c.maxNorm / norm)
	return norm, true
}

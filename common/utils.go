package common

// Coalesce picks the first value that was actually set. The render host uses
// it to let a renderable's technique override the configured one.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

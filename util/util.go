package util

// Unpack spreads a slice into the given variables.
// If the slice has fewer elements than variables, the remaining variables
// are left untouched; extra elements are ignored.
func Unpack[T any](toUnpack []T, unpackInto ...*T) {
	if len(toUnpack) > len(unpackInto) {
		for i := range unpackInto {
			*unpackInto[i] = toUnpack[i]
		}
	} else {
		for i, v := range toUnpack {
			*unpackInto[i] = v
		}
	}
}

package smartstate

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// DeepEqual reports structural equality, treating NaN as equal to NaN and
// nil and empty slices and maps as equal. It fits Property.Equals.
func DeepEqual(a, b any) bool {
	return cmp.Equal(a, b, cmpopts.EquateNaNs(), cmpopts.EquateEmpty())
}

// EqualWith returns an Equals hook using the given cmp options.
func EqualWith(opts ...cmp.Option) func(a, b any) bool {
	return func(a, b any) bool {
		return cmp.Equal(a, b, opts...)
	}
}

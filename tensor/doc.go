// Package tensor provides the dense numeric array type exchanged between
// training engines and the comparison machinery, together with the
// tolerance-based AllClose check used to assert numeric equivalence
// between backends.
package tensor

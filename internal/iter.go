package internal

import (
	"iter"
	"slices"
)

// IterSeqConcat concatenates multiple iterators into a single iterator sequence.
func IterSeqConcat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for val := range seq {
				if !yield(val) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// IterSliceConcat concatenates the elements of multiple slices into a single iterator sequence.
func IterSliceConcat[T any](slcs ...[]T) iter.Seq[T] {
	seqs := make([]iter.Seq[T], 0, len(slcs))
	for _, slc := range slcs {
		seqs = append(seqs, slices.Values(slc))
	}

	return IterSeqConcat(seqs...)
}

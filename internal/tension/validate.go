package tension

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StatusRule and VectorRule restrict values to the known enums.
var (
	StatusRule = validation.In(anySlice(Statuses)...).Error("must be one of held, forming, released, parked, dropped")
	VectorRule = validation.In(anySlice(Vectors)...).Error("must be a known vector")
)

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

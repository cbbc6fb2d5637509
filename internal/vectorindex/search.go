// Package vectorindex implements exact cosine K-nearest-neighbor search
// over a table's Vector column. Vectors are L2-normalized on insert so the
// similarity kernel at query time reduces to a plain dot product.
package vectorindex

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged (its norm is 0, so normalization is undefined).
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	n := floats.Norm(out, 2)
	if n == 0 {
		return out
	}
	floats.Scale(1/n, out)
	return out
}

// Result is one scored row from a SEARCH call.
type Result struct {
	RowIndex   int
	Similarity float64
}

// RowSource yields the Vector value for a candidate row; the caller
// supplies it so this package never depends on the relational package.
type RowSource func(rowIndex int) (value.Value, bool)

// Search scores every row in [0,rowCount) by cosine similarity of its
// Vector column against pivot (which must already be L2-normalized the
// same way stored vectors are), returning the top-k by descending
// similarity with ties broken by ascending row index. Rows with a Null
// vector, a dimension mismatch, or any other non-Vector value are skipped.
func Search(rowCount int, pivot []float64, k int, get RowSource) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %d", k)
	}
	var scored []Result
	for i := 0; i < rowCount; i++ {
		v, ok := get(i)
		if !ok || v.Kind != value.KindVector || len(v.Vector) != len(pivot) {
			continue
		}
		sim := floats.Dot(v.Vector, pivot)
		scored = append(scored, Result{RowIndex: i, Similarity: sim})
	}
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Similarity != scored[b].Similarity {
			return scored[a].Similarity > scored[b].Similarity
		}
		return scored[a].RowIndex < scored[b].RowIndex
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

package beam

import "gonum.org/v1/gonum/mat"

func denseOf(n int, data []float64) *mat.Dense {
	return mat.NewDense(n, n, data)
}

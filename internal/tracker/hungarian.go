package tracker

import "math"

// HungarianAssign solves the rectangular minimum-cost assignment problem in
// O(N³) using the Kuhn–Munkres algorithm with potentials (Jonker–Volgenant
// variant). Given an n×m cost matrix of non-negative finite reals it returns
// assignments[i] = column index assigned to row i, or -1 if unassigned.
//
// The matrix is padded to N×N (N = max(n, m)) with zero-cost rows/columns, so
// the padded problem always has a complete matching; assignments that land in
// padding are reduced to -1. Callers model "must avoid" entries with a large
// finite cost and post-filter — infinities must not enter the matrix, since
// they would propagate NaN through the potential updates.
//
// The solver is deterministic: ties follow the column iteration order of the
// inner search, so repeated runs on equal inputs produce the same matching.
func HungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	dim := n
	if m > dim {
		dim = m
	}

	// Padded square matrix, 1-indexed for cleaner index arithmetic below.
	a := make([][]float64, dim+1)
	for i := 1; i <= dim; i++ {
		a[i] = make([]float64, dim+1)
		for j := 1; j <= dim; j++ {
			if i <= n && j <= m {
				a[i][j] = cost[i-1][j-1]
			}
		}
	}

	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1)   // row potentials
	v := make([]float64, dim+1)   // column potentials
	p := make([]int, dim+1)       // p[j] = row assigned to column j
	way := make([]int, dim+1)     // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0 // virtual column

		for j := 0; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			j1 := 0
			delta := inf

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := a[i0][j] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	// p[j] gives the row matched to column j in the padded square problem.
	// Reduce to the caller's coordinates: only real rows into real columns.
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	for j := 1; j <= dim; j++ {
		i := p[j]
		if i >= 1 && i <= n && j <= m {
			result[i-1] = j - 1
		}
	}

	return result
}

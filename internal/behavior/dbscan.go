package behavior

import (
	"math"
	"sort"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Clustering parameters, tuned for standardized two-dimensional features.
const (
	clusterEps    = 0.5
	clusterMinPts = 3
)

// Label values used during expansion
const (
	labelUnvisited = -2
	labelNoise     = -1
)

// fundingCodes maps each wallet's funding source to a categorical code
// assigned in lexicographic order of the distinct sources.
func fundingCodes(records []models.WalletRecord) []float64 {
	distinct := make(map[string]struct{}, len(records))
	for _, r := range records {
		distinct[r.FundingSource] = struct{}{}
	}
	sources := make([]string, 0, len(distinct))
	for s := range distinct {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	code := make(map[string]float64, len(sources))
	for i, s := range sources {
		code[s] = float64(i)
	}

	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = code[r.FundingSource]
	}
	return out
}

// standardize rescales to zero mean and unit variance. A constant feature
// maps to all zeros.
func standardize(xs []float64) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}

	mu := 0.0
	for _, x := range xs {
		mu += x
	}
	mu /= float64(n)

	variance := 0.0
	for _, x := range xs {
		variance += (x - mu) * (x - mu)
	}
	variance /= float64(n)

	out := make([]float64, n)
	if variance == 0 {
		return out
	}
	sd := math.Sqrt(variance)
	for i, x := range xs {
		out[i] = (x - mu) / sd
	}
	return out
}

// dbscan labels each point with its cluster index, or labelNoise. A point is
// a core point when its eps-neighborhood, itself included, holds at least
// minPts points. Border points join the first cluster that reaches them.
func dbscan(points [][2]float64, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = labelUnvisited
	}

	clusterID := 0
	for i := range points {
		if labels[i] != labelUnvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = labelNoise
			continue
		}

		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			q := queue[qi]
			if labels[q] == labelNoise {
				labels[q] = clusterID
			}
			if labels[q] != labelUnvisited {
				continue
			}
			labels[q] = clusterID

			qNeighbors := regionQuery(points, q, eps)
			if len(qNeighbors) >= minPts {
				queue = append(queue, qNeighbors...)
			}
		}
		clusterID++
	}

	return labels
}

// regionQuery returns the indices within eps of point i, including i itself
func regionQuery(points [][2]float64, i int, eps float64) []int {
	var out []int
	for j := range points {
		dx := points[i][0] - points[j][0]
		dy := points[i][1] - points[j][1]
		if math.Sqrt(dx*dx+dy*dy) <= eps {
			out = append(out, j)
		}
	}
	return out
}

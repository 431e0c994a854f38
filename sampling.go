package boost

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// SelectorConfig configures the k-means clustering behind
// RepresentativeSelector.
type SelectorConfig struct {
	// Restarts is the number of k-means++ initialisations. The run with the
	// lowest within-cluster sum of squares is kept.
	Restarts int

	// MaxIterations bounds Lloyd iterations per restart.
	MaxIterations int

	// Tolerance is the relative objective improvement below which a run is
	// considered converged.
	Tolerance float64

	// Seed makes the clustering reproducible.
	Seed int64
}

// DefaultSelectorConfig returns 10 restarts of at most 300 iterations with
// seed 42.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Restarts:      10,
		MaxIterations: 300,
		Tolerance:     1e-4,
		Seed:          42,
	}
}

// RepresentativeSelector reduces a point set to k geometrically diverse
// members: one per k-means cluster, the member nearest its centroid.
type RepresentativeSelector struct {
	config SelectorConfig
}

// NewRepresentativeSelector creates a selector.
func NewRepresentativeSelector(config SelectorConfig) *RepresentativeSelector {
	if config.Restarts < 1 {
		config.Restarts = 1
	}

	if config.MaxIterations < 1 {
		config.MaxIterations = 1
	}

	return &RepresentativeSelector{config: config}
}

// clustering is the outcome of one k-means run.
type clustering struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// Select returns exactly k distinct indices into points, one per cluster, in
// cluster order. Within a cluster the member closest to the centroid wins;
// ties go to the lowest index.
//
// A new RNG seeded from the configuration is used on every call, so the
// result depends only on points and k.
func (s *RepresentativeSelector) Select(points [][]float64, k int) ([]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: cannot select %d representatives", ErrUnsupportedConfiguration, k)
	}

	if len(points) < k {
		return nil, fmt.Errorf("%w: %d points for %d representatives", ErrInsufficientData, len(points), k)
	}

	if err := checkDims(points); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.config.Seed))

	var best *clustering

	for r := 0; r < s.config.Restarts; r++ {
		c := s.run(points, k, rng)
		if best == nil || c.inertia < best.inertia {
			best = c
		}
	}

	selected := make([]int, k)
	bestDist := make([]float64, k)

	for c := range selected {
		selected[c] = -1
		bestDist[c] = math.Inf(1)
	}

	for i, p := range points {
		c := best.labels[i]
		if d := floats.Distance(p, best.centroids[c], 2); d < bestDist[c] {
			bestDist[c] = d
			selected[c] = i
		}
	}

	return selected, nil
}

// run performs one k-means++ initialisation followed by Lloyd iterations.
func (s *RepresentativeSelector) run(points [][]float64, k int, rng *rand.Rand) *clustering {
	c := &clustering{
		labels:    make([]int, len(points)),
		centroids: initPlusPlus(points, k, rng),
	}

	prev := math.Inf(1)

	for it := 0; it < s.config.MaxIterations; it++ {
		assign(points, c)
		fillEmpty(points, c)
		updateCentroids(points, c)

		inertia := inertiaOf(points, c)
		if prev-inertia <= s.config.Tolerance*inertia {
			break
		}

		prev = inertia
	}

	assign(points, c)
	fillEmpty(points, c)
	updateCentroids(points, c)
	c.inertia = inertiaOf(points, c)

	return c
}

// initPlusPlus picks k initial centroids, each drawn with probability
// proportional to its squared distance from the nearest centroid so far.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	for len(centroids) < k {
		last := centroids[len(centroids)-1]

		var total float64

		for i, p := range points {
			d := floats.Distance(p, last, 2)
			dist[i] = math.Min(dist[i], d*d)
			total += dist[i]
		}

		next := rng.Intn(n)

		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}

		centroids = append(centroids, append([]float64(nil), points[next]...))
	}

	return centroids
}

// assign labels every point with its nearest centroid, lowest cluster index
// on ties.
func assign(points [][]float64, c *clustering) {
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for j, centroid := range c.centroids {
			if d := floats.Distance(p, centroid, 2); d < bestDist {
				best, bestDist = j, d
			}
		}

		c.labels[i] = best
	}
}

// fillEmpty gives every empty cluster the point farthest from its own
// centroid, taken from a cluster that has more than one member. With at
// least k points this always succeeds, so every cluster ends non-empty.
func fillEmpty(points [][]float64, c *clustering) {
	counts := make([]int, len(c.centroids))
	for _, l := range c.labels {
		counts[l]++
	}

	for empty, count := range counts {
		if count > 0 {
			continue
		}

		donor, donorDist := -1, -1.0

		for i, p := range points {
			l := c.labels[i]
			if counts[l] < 2 {
				continue
			}

			if d := floats.Distance(p, c.centroids[l], 2); d > donorDist {
				donor, donorDist = i, d
			}
		}

		counts[c.labels[donor]]--
		counts[empty]++
		c.labels[donor] = empty
		c.centroids[empty] = append([]float64(nil), points[donor]...)
	}
}

// updateCentroids moves every centroid to the mean of its members.
func updateCentroids(points [][]float64, c *clustering) {
	d := len(points[0])
	sums := make([][]float64, len(c.centroids))
	counts := make([]int, len(c.centroids))

	for j := range sums {
		sums[j] = make([]float64, d)
	}

	for i, p := range points {
		floats.Add(sums[c.labels[i]], p)
		counts[c.labels[i]]++
	}

	for j := range c.centroids {
		if counts[j] == 0 {
			continue
		}

		floats.Scale(1/float64(counts[j]), sums[j])
		c.centroids[j] = sums[j]
	}
}

func inertiaOf(points [][]float64, c *clustering) float64 {
	var total float64

	for i, p := range points {
		d := floats.Distance(p, c.centroids[c.labels[i]], 2)
		total += d * d
	}

	return total
}

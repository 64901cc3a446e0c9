package detection

import (
	"sort"

	"github.com/ironsheep/image-censor/internal/geometry"
)

// LowConfidenceRatio is the fraction of a cluster's best confidence a member
// must reach to take part in a merge. Weaker members are dropped.
const LowConfidenceRatio = 0.75

// IntersectingMerger merges overlapping detections that share a label.
//
// # Algorithm
//
// Detections are grouped by label. Within a group, every detection collects
// the other members whose box intersects its own, skipping members already
// contained by a strictly larger third detection. A detection that is at
// least as large as everything it intersects is a merge seed (ties go to the
// earlier input). Seeds are visited largest first. The seed and its
// unclaimed neighbours form a cluster:
//
//  1. Members below LowConfidenceRatio of the label group's best confidence
//     are dropped.
//  2. The survivors are folded into a running union, seed first.
//  3. A union is rejected when it grows more than 2x past both inputs in
//     width and in height; the rejected candidate is emitted unchanged.
//  4. An accepted union takes the higher confidence and the angle between
//     the two centers that is closest to 0 degrees.
//
// Passes repeat until one produces no change, so running the merger on its
// own output returns it unchanged. Output keeps input order.
type IntersectingMerger struct{}

// TransformResults implements Transformer.
func (IntersectingMerger) TransformResults(detections []Detection) []Detection {
	out := Clone(detections)
	for {
		next := mergePass(out)
		if len(next) >= len(out) {
			return out
		}
		out = next
	}
}

// mergePass runs one round of clustering over every label group.
func mergePass(detections []Detection) []Detection {
	slots := make([]*Detection, len(detections))
	for i := range detections {
		d := detections[i]
		slots[i] = &d
	}

	for _, group := range groupByLabel(detections) {
		if len(group) < 2 {
			continue
		}
		mergeGroup(detections, group, slots)
	}

	out := make([]Detection, 0, len(detections))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// groupByLabel returns input indices grouped by label, in first-seen order.
func groupByLabel(detections []Detection) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i, d := range detections {
		g, ok := index[d.Label]
		if !ok {
			g = len(groups)
			index[d.Label] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// mergeGroup clusters one label group and rewrites slots in place. A nil slot
// means the detection was dropped or folded into another.
func mergeGroup(all []Detection, group []int, slots []*Detection) {
	sets := make(map[int][]int, len(group))
	for _, i := range group {
		sets[i] = intersectingSet(all, group, i)
	}

	seeds := make([]int, 0, len(group))
	for _, i := range group {
		if len(sets[i]) > 0 && isSeed(all, i, sets[i]) {
			seeds = append(seeds, i)
		}
	}
	sort.SliceStable(seeds, func(a, b int) bool {
		return all[seeds[a]].Box.Area() > all[seeds[b]].Box.Area()
	})

	best := 0.0
	for _, i := range group {
		best = max(best, all[i].Confidence)
	}

	consumed := make(map[int]bool, len(group))
	for _, seed := range seeds {
		if consumed[seed] {
			continue
		}
		cluster := []int{seed}
		for _, j := range sets[seed] {
			if !consumed[j] {
				cluster = append(cluster, j)
			}
		}
		for _, j := range cluster {
			consumed[j] = true
		}
		foldCluster(all, cluster, best, slots)
	}
}

// intersectingSet returns the members of group, other than i, whose box
// intersects detection i and is not contained by a strictly larger third
// member. Indices keep input order.
func intersectingSet(all []Detection, group []int, i int) []int {
	var set []int
	for _, j := range group {
		if j == i || !geometry.Intersects(all[i].Box, all[j].Box) {
			continue
		}
		if subsumed(all, group, i, j) {
			continue
		}
		set = append(set, j)
	}
	return set
}

func subsumed(all []Detection, group []int, i, j int) bool {
	for _, k := range group {
		if k == i || k == j {
			continue
		}
		if all[k].Box.Area() > all[j].Box.Area() && geometry.Contains(all[k].Box, all[j].Box) {
			return true
		}
	}
	return false
}

func isSeed(all []Detection, i int, set []int) bool {
	area := all[i].Box.Area()
	for _, j := range set {
		other := all[j].Box.Area()
		if other > area || (other == area && j < i) {
			return false
		}
	}
	return true
}

// foldCluster applies the confidence filter and pairwise union to a cluster
// whose first element is the seed. best is the group's highest confidence.
func foldCluster(all []Detection, cluster []int, best float64, slots []*Detection) {
	survivors := make([]int, 0, len(cluster))
	for _, j := range cluster {
		if all[j].Confidence < best*LowConfidenceRatio {
			slots[j] = nil
			continue
		}
		survivors = append(survivors, j)
	}
	if len(survivors) < 2 {
		return
	}

	anchor := survivors[0]
	running := all[anchor]
	for _, j := range survivors[1:] {
		merged, ok := mergePair(running, all[j])
		if !ok {
			continue
		}
		running = merged
		slots[j] = nil
	}
	slots[anchor] = &running
}

// mergePair unions two detections, or reports false when the union would
// have to grow implausibly on both axes.
func mergePair(a, b Detection) (Detection, bool) {
	u := geometry.Union(a.Box, b.Box)
	if rejectUnion(u, a.Box, b.Box) {
		return Detection{}, false
	}

	ca := geometry.Center(a.Box)
	cb := geometry.Center(b.Box)
	angle := geometry.ClosestTo(0, geometry.AngleBetween(ca, cb), geometry.AngleBetween(cb, ca))

	merged := Detection{
		Box:        u,
		Confidence: max(a.Confidence, b.Confidence),
		Label:      a.Label,
		Virtual:    a.Virtual && b.Virtual,
	}
	return merged.WithAngle(angle), true
}

func rejectUnion(u, a, b geometry.Rect) bool {
	wide := u.Width > 2*a.Width && u.Width > 2*b.Width
	tall := u.Height > 2*a.Height && u.Height > 2*b.Height
	return wide && tall
}

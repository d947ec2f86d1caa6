package kdtree

// superKeyCompare orders a and b lexicographically starting at coordinate
// axis and wrapping through all k coordinates: axis, axis+1, ..., axis-1.
// The result is 0 only when every coordinate matches, which makes the order
// total over distinct locations.
func superKeyCompare(a, b []float64, axis, k int) int {
	for i := 0; i < k; i++ {
		r := axis + i
		if r >= k {
			r -= k
		}
		if a[r] < b[r] {
			return -1
		}
		if a[r] > b[r] {
			return 1
		}
	}
	return 0
}

// mergeSort sorts refs[left..right] by the superkey starting at axis. It is
// a stable top-down merge sort; scratch must be at least as long as refs.
func mergeSort(refs, scratch []*Point, left, right, axis, k int) {
	if right <= left {
		return
	}
	mid := left + (right-left)/2
	mergeSort(refs, scratch, left, mid, axis, k)
	mergeSort(refs, scratch, mid+1, right, axis, k)

	copy(scratch[left:right+1], refs[left:right+1])
	i, j := left, mid+1
	for l := left; l <= right; l++ {
		switch {
		case i > mid:
			refs[l] = scratch[j]
			j++
		case j > right:
			refs[l] = scratch[i]
			i++
		case superKeyCompare(scratch[j].Coords, scratch[i].Coords, axis, k) < 0:
			refs[l] = scratch[j]
			j++
		default:
			refs[l] = scratch[i]
			i++
		}
	}
}

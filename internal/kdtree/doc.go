// Package kdtree is the spatial index at the centre of the point-cloud
// pipeline: a k-d tree over points with k coordinates and a scalar strength.
//
// Bulk construction uses k presorted superkey orderings so that a balanced
// tree is produced in O(k·n·log n) without repeated median searches.
// Insert, Remove, Contains and the proximity queries all branch on the same
// superkey order, so exact ties on a splitting coordinate resolve the same
// way on every path.
//
// A Tree is not safe for concurrent use. Queries return copies of the stored
// points; callers may mutate them freely.
package kdtree

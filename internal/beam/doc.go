// Package beam provides the linear-algebra and beam-statistics types shared by
// the tracking algorithms.
//
// Phase space is seven dimensional: (x, x', y, y', z, z', 1). The trailing
// homogeneous coordinate lets a single 7×7 PhaseMatrix carry affine offsets
// (alignment errors, centroid translations) in its last column. Matrices are
// stored in gonum dense matrices.
package beam

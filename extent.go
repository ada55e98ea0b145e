// extent.go
//go:build medialibchecker

package main

// Extent is a maximal run of a file's blocks placed contiguously on the
// device. It is an immutable value; equality is structural.
type Extent struct {
	// LogicalOffset is the block index inside the file (0-based).
	LogicalOffset int
	// PhysicalOffset is the block index on the device.
	PhysicalOffset int
	// BlockCount is the number of contiguous blocks in the run.
	BlockCount int
}

func byLogicalOffsetDescending(a, b Extent) bool {
	return a.LogicalOffset > b.LogicalOffset
}

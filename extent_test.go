// extent_test.go
//go:build medialibchecker

package main

import "testing"

func TestByLogicalOffsetDescending(t *testing.T) {
	a := Extent{LogicalOffset: 10}
	b := Extent{LogicalOffset: 5}
	if !byLogicalOffsetDescending(a, b) {
		t.Fatalf("expected %v to sort before %v", a, b)
	}
	if byLogicalOffsetDescending(b, a) {
		t.Fatalf("expected %v not to sort before %v", b, a)
	}
}

package abi

import "testing"

func TestPointLayout(t *testing.T) {
	if PointSize != 8 {
		t.Errorf("PointSize = %d, want 8", PointSize)
	}
	if PointYOffset-PointXOffset != Int32Size {
		t.Errorf("y offset = %d, want %d", PointYOffset, Int32Size)
	}
}

func TestIsExport(t *testing.T) {
	for _, name := range Exports {
		if !IsExport(name) {
			t.Errorf("IsExport(%q) = false", name)
		}
	}
	if IsExport("memalloc") {
		t.Error("memalloc is an alias, not a canonical export")
	}
}

func TestStatusCode(t *testing.T) {
	statuses := []Status{
		StatusOK,
		StatusNullPointer,
		StatusSizeMismatch,
		StatusUnknownBlock,
		StatusLayoutOverflow,
	}

	for i, s := range statuses {
		if s.Code() != int32(-i) {
			t.Errorf("%s code = %d, want %d", s, s.Code(), -i)
		}
	}
}

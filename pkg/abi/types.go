package abi

// Shared layout and naming for the native bridge boundary.
// This package is imported by the native exports, the wasm guest and the host harness.

import "unsafe"

// ConstantValue is the fixed value returned by the constant entry point.
const ConstantValue int32 = 42

// Int32Size is the size in bytes of one array element.
const Int32Size = 4

// Point is the fixed-layout structure mutated by increment_point.
// x lives at offset 0, y at offset 4, no padding.
type Point struct {
	X int32
	Y int32
}

// PointSize is the size in bytes of a Point.
const PointSize = 2 * Int32Size

// Compile-time check that Point has no padding.
var _ [PointSize]struct{} = [unsafe.Sizeof(Point{})]struct{}{}

// Offsets of the Point fields.
const (
	PointXOffset = 0
	PointYOffset = 4
)

// Canonical export names.
const (
	ExportConstant       = "constant"
	ExportSum            = "sum"
	ExportIncrementArray = "increment_array"
	ExportIncrementPoint = "increment_point"
	ExportAllocate       = "allocate"
	ExportDeallocate     = "deallocate"
)

// Exports lists every canonical export name in declaration order.
var Exports = []string{
	ExportConstant,
	ExportSum,
	ExportIncrementArray,
	ExportIncrementPoint,
	ExportAllocate,
	ExportDeallocate,
}

// IsExport reports whether name is a canonical export name.
func IsExport(name string) bool {
	for _, e := range Exports {
		if e == name {
			return true
		}
	}
	return false
}

// Host import guests use for logging: log_message(level, ptr, length).
const (
	HostModule     = "host"
	HostLogMessage = "log_message"
)

// Log levels understood by the host log_message import.
const (
	LogDebug uint32 = iota
	LogInfo
	LogWarn
	LogError
)

// Status is the result code of the checked deallocation entry point.
type Status int32

const (
	StatusOK Status = iota
	StatusNullPointer
	StatusSizeMismatch
	StatusUnknownBlock
	StatusLayoutOverflow
)

// Code returns the value returned across the C boundary (0 or negative).
func (s Status) Code() int32 {
	return -int32(s)
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNullPointer:
		return "null pointer"
	case StatusSizeMismatch:
		return "size mismatch"
	case StatusUnknownBlock:
		return "unknown block"
	case StatusLayoutOverflow:
		return "layout overflow"
	default:
		return "unknown status"
	}
}

package bridge

import "unsafe"

const (
	liveMagic  uint32 = 0x4e42_4c4b // "NBLK"
	freedMagic uint32 = 0x4e42_4652 // "NBFR"
)

// blockHeader precedes every block handed out by Tracked.
type blockHeader struct {
	size  uint64
	magic uint32
	_     uint32
}

const headerSize = unsafe.Sizeof(blockHeader{})

// Tracked stores the requested size in a header in front of each block and
// verifies it on deallocation, so a mismatched size or a foreign address is
// reported instead of corrupting the heap.
//
// Detection is best effort: a block that was freed and whose memory was
// reused by the underlying heap can no longer be told apart from garbage.
type Tracked struct {
	heap Heap
}

// NewTracked wraps h with size tracking.
func NewTracked(h Heap) *Tracked {
	return &Tracked{heap: h}
}

// Allocate returns a block of size usable bytes.
func (t *Tracked) Allocate(size uintptr) (unsafe.Pointer, error) {
	if size > MaxLayoutSize-headerSize {
		return nil, &LayoutError{Size: size}
	}
	base, err := Allocate(t.heap, size+headerSize)
	if err != nil {
		return nil, err
	}

	hdr := (*blockHeader)(base)
	hdr.size = uint64(size)
	hdr.magic = liveMagic
	return unsafe.Add(base, headerSize), nil
}

// Deallocate releases a block from Allocate after checking its header.
func (t *Tracked) Deallocate(p unsafe.Pointer, size uintptr) error {
	if size > MaxLayoutSize-headerSize {
		return &LayoutError{Size: size}
	}
	if p == nil {
		return ErrNullPointer
	}

	base := unsafe.Add(p, -int(headerSize))
	hdr := (*blockHeader)(base)
	if hdr.magic != liveMagic {
		return ErrUnknownBlock
	}
	if hdr.size != uint64(size) {
		return &SizeMismatchError{Allocated: hdr.size, Requested: size}
	}

	hdr.magic = freedMagic
	t.heap.Free(base)
	return nil
}

// SizeOf returns the size recorded for a live block.
func (t *Tracked) SizeOf(p unsafe.Pointer) (uintptr, error) {
	if p == nil {
		return 0, ErrNullPointer
	}
	hdr := (*blockHeader)(unsafe.Add(p, -int(headerSize)))
	if hdr.magic != liveMagic {
		return 0, ErrUnknownBlock
	}
	return uintptr(hdr.size), nil
}

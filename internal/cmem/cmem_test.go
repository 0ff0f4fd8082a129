//go:build cgo

package cmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/native-bridge/internal/bridge"
	"github.com/woxQAQ/native-bridge/pkg/abi"
)

var _ bridge.Heap = Heap{}

func TestAllocateWriteRead(t *testing.T) {
	p, err := bridge.Allocate(Heap{}, 4*3)
	require.NoError(t, err)
	require.NotNil(t, p)
	defer bridge.MustDeallocate(Heap{}, p, 4*3)

	ints := bridge.Int32View(p, 3)
	ints[0], ints[1], ints[2] = 1, 2, 3

	assert.Equal(t, []int32{1, 2, 3}, append([]int32(nil), bridge.Int32View(p, 3)...))
}

func TestIncrementOnCHeap(t *testing.T) {
	p, err := bridge.Allocate(Heap{}, uintptr(abi.PointSize))
	require.NoError(t, err)
	defer bridge.MustDeallocate(Heap{}, p, uintptr(abi.PointSize))

	pt := bridge.PointAt(p)
	*pt = abi.Point{X: 0, Y: 1}
	bridge.IncrementPoint(pt)

	assert.Equal(t, abi.Point{X: 1, Y: 2}, *pt)
}

func TestRepeatedCycles(t *testing.T) {
	live, err := bridge.Allocate(Heap{}, 16)
	require.NoError(t, err)
	defer bridge.MustDeallocate(Heap{}, live, 16)
	copy(bridge.Int32View(live, 4), []int32{5, 6, 7, 8})

	for i := 0; i < 1000; i++ {
		size := uintptr(1 + i%256)
		p, err := bridge.Allocate(Heap{}, size)
		require.NoError(t, err)
		buf := unsafe.Slice((*byte)(p), size)
		for j := range buf {
			buf[j] = byte(i)
		}
		require.NoError(t, bridge.Deallocate(Heap{}, p, size))
	}

	assert.Equal(t, []int32{5, 6, 7, 8}, append([]int32(nil), bridge.Int32View(live, 4)...))
}

func TestTrackedOnCHeap(t *testing.T) {
	tr := bridge.NewTracked(Heap{})

	p, err := tr.Allocate(12)
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Deallocate(p, 11), bridge.ErrSizeMismatch)
	assert.NoError(t, tr.Deallocate(p, 12))
}

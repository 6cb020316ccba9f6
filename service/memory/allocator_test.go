package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kcore/model/process"
)

func TestAllocator_FirstFitAndCoalesce(t *testing.T) {
	allocator := New(Config{Base: 0x1000, Size: 10 * unitSize})
	assert.Equal(t, Stats{Total: 160, Allocated: 0, Available: 160}, allocator.State())

	small, ok := allocator.Alloc(16)
	assert.True(t, ok)
	assert.Equal(t, process.Address(0x1090), small)

	large, ok := allocator.Alloc(100)
	assert.True(t, ok)
	assert.Equal(t, process.Address(0x1010), large)
	assert.Equal(t, uint64(160), allocator.State().Allocated)

	_, ok = allocator.Alloc(1)
	assert.False(t, ok)

	allocator.Free(small)
	allocator.Free(large)
	assert.Equal(t, uint64(0), allocator.State().Allocated)
	assert.Equal(t, []block{{start: 0x1000, units: 10}}, allocator.free)

	whole, ok := allocator.Alloc(9 * unitSize)
	assert.True(t, ok)
	assert.Equal(t, process.Address(0x1010), whole)
}

func TestAllocator_Free(t *testing.T) {
	testCases := []struct {
		name  string
		order []int
	}{
		{name: "ascending", order: []int{0, 1, 2}},
		{name: "descending", order: []int{2, 1, 0}},
		{name: "middle last", order: []int{0, 2, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			allocator := New(Config{Base: 0x2000, Size: 12 * unitSize})
			var addrs []process.Address
			for i := 0; i < 3; i++ {
				addr, ok := allocator.Alloc(3 * unitSize)
				assert.True(t, ok)
				addrs = append(addrs, addr)
			}
			assert.Equal(t, uint64(0), allocator.State().Available)
			for _, i := range tc.order {
				allocator.Free(addrs[i])
			}
			assert.Equal(t, []block{{start: 0x2000, units: 12}}, allocator.free)
		})
	}
}

func TestAllocator_RejectsInvalid(t *testing.T) {
	allocator := New(DefaultConfig())
	_, ok := allocator.Alloc(0)
	assert.False(t, ok)
	allocator.Free(0)
	allocator.Free(0xdead)
	assert.Equal(t, uint64(0), allocator.State().Allocated)
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{}.Validate())
}

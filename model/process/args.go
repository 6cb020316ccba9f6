package process

import "bytes"

const pointerSize = 8

// ArgBlock is a flattened argument vector laid out as a pointer table of
// argc+1 slots followed by packed NUL-terminated strings, so one allocation
// holds and releases the whole vector.
type ArgBlock struct {
	Address Address
	data    []byte
	offsets []int
}

// PackArgs copies args into a new block. Arguments are cut at an embedded NUL.
func PackArgs(args []string) *ArgBlock {
	size := 0
	for _, arg := range args {
		size += len(arg) + 1
	}
	ret := &ArgBlock{data: make([]byte, 0, size), offsets: make([]int, 0, len(args))}
	for _, arg := range args {
		ret.offsets = append(ret.offsets, len(ret.data))
		ret.data = append(ret.data, arg...)
		ret.data = append(ret.data, 0)
	}
	return ret
}

// Argc returns the number of arguments.
func (b *ArgBlock) Argc() int {
	if b == nil {
		return 0
	}
	return len(b.offsets)
}

// Size returns the allocation size of the block.
func (b *ArgBlock) Size() int {
	if b == nil {
		return pointerSize
	}
	return pointerSize*(len(b.offsets)+1) + len(b.data)
}

// Args rebuilds the argument vector from the packed strings.
func (b *ArgBlock) Args() []string {
	ret := make([]string, 0, b.Argc())
	if b == nil {
		return ret
	}
	for _, offset := range b.offsets {
		end := bytes.IndexByte(b.data[offset:], 0)
		ret = append(ret, string(b.data[offset:offset+end]))
	}
	return ret
}

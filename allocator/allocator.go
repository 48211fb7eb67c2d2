// Package allocator implements a fixed-block memory allocator: a free
// list of same-sized blocks backed by page-sized segments carved on
// demand. Blocks are never individually returned to the operating
// system; segments are torn down together when the allocator is
// deinitialised. Callers are responsible for returning every block to
// the allocator before calling Deinit.
//
// The design mirrors a slab allocator for eBPF map entries: map
// backends use one allocator per fixed entry size so that lookups and
// updates never call into the general-purpose allocator on the hot
// path.
package allocator

import (
	"log/slog"
	"sync"

	"golang.org/x/exp/constraints"
	"golang.org/x/sys/unix"

	"github.com/frobware/ebpfcore/ebpferrors"
)

// align is the byte alignment every returned block satisfies.
const align = 8

// Allocator is a fixed-block allocator for blocks of a single size. The
// zero value is not usable; construct with New.
type Allocator struct {
	blockSize uint32
	pageSize  uint32
	logger    *slog.Logger

	mu       sync.Mutex
	free     []unsafePointerBlock
	segments [][]byte
}

// unsafePointerBlock is a block carved out of a segment. Using a slice
// header rather than unsafe.Pointer keeps the allocator free of
// unsafe, at the cost of two extra words per free block; callers treat
// the returned slice as a fixed-size buffer.
type unsafePointerBlock []byte

// New creates an allocator that hands out blocks of blockSize bytes.
// blockSize must be a non-zero multiple of the platform word alignment.
// logger may be nil, in which case slog.Default() is used.
func New(blockSize uint32, logger *slog.Logger) (*Allocator, error) {
	if blockSize == 0 || blockSize%align != 0 {
		return nil, ebpferrors.InvalidArgument("block size %d must be a non-zero multiple of %d", blockSize, align)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		blockSize: blockSize,
		pageSize:  uint32(unix.Getpagesize()),
		logger:    logger.With("component", "allocator"),
	}, nil
}

// BlockSize returns the fixed size of every block this allocator hands out.
func (a *Allocator) BlockSize() uint32 {
	return a.blockSize
}

// Prealloc carves enough segments to have at least nblocks blocks on
// the free list, without handing any of them out. It is a convenience
// for warming an allocator before use on a latency-sensitive path.
func (a *Allocator) Prealloc(nblocks uint32) error {
	if nblocks == 0 {
		return ebpferrors.InvalidArgument("nblocks must be non-zero")
	}
	held := make([]unsafePointerBlock, 0, nblocks)
	for i := uint32(0); i < nblocks; i++ {
		b, err := a.Alloc()
		if err != nil {
			for _, h := range held {
				a.Free(h)
			}
			return err
		}
		held = append(held, b)
	}
	for _, h := range held {
		a.Free(h)
	}
	return nil
}

// Alloc returns a zeroed block of BlockSize() bytes from the free
// list, carving a new page-sized segment first if the list is empty.
func (a *Allocator) Alloc() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) == 0 {
		a.carveSegment()
	}

	n := len(a.free)
	block := a.free[n-1]
	a.free = a.free[:n-1]
	clear(block)
	return block, nil
}

// Free returns a block to the free list. It never releases memory
// back to the operating system; the segment it came from is released
// only when Deinit runs.
func (a *Allocator) Free(block []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, unsafePointerBlock(block))
}

// Stats reports the allocator's current segment and free-list sizes,
// for use by inspection tooling.
type Stats struct {
	BlockSize    uint32
	SegmentCount int
	FreeBlocks   int
	BytesCarved  uint64
}

// Stats returns a snapshot of the allocator's bookkeeping counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	var carved uint64
	for _, s := range a.segments {
		carved += uint64(len(s))
	}
	return Stats{
		BlockSize:    a.blockSize,
		SegmentCount: len(a.segments),
		FreeBlocks:   len(a.free),
		BytesCarved:  carved,
	}
}

// Deinit releases every segment this allocator has carved. Callers
// must have returned all outstanding blocks first; Deinit does not
// check for outstanding allocations, matching the fixed-block
// allocator it is modelled on.
func (a *Allocator) Deinit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segments = nil
	a.free = nil
}

// carveSegment allocates one new page-sized (or larger, if the block
// size demands it) segment and splits it into blocks on the free
// list. Must be called with a.mu held.
func (a *Allocator) carveSegment() {
	size := a.pageSize
	if size < a.blockSize {
		size = alignUp(a.blockSize, a.pageSize)
	}

	segment := make([]byte, size)
	a.segments = append(a.segments, segment)
	a.logger.Debug("segment carved", "size", size, "segments", len(a.segments), "block_size", a.blockSize)

	remaining := size
	offset := uint32(0)
	for remaining >= a.blockSize {
		a.free = append(a.free, unsafePointerBlock(segment[offset:offset+a.blockSize]))
		offset += a.blockSize
		remaining -= a.blockSize
	}
}

// alignUp rounds v up to the next multiple of to.
func alignUp[T constraints.Unsigned](v, to T) T {
	if to == 0 {
		return v
	}
	rem := v % to
	if rem == 0 {
		return v
	}
	return v + (to - rem)
}

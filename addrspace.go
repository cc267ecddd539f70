package envkernel

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pageSize is used only to size FlatAddressSpace's backing store in
// page-aligned chunks, mirroring how the real kernel's map_region works in
// whole pages even though this simulation has no MMU. Grounded on
// golang.org/x/sys/unix.Getpagesize, the cross-platform way the rest of the
// examples pack queries it (no pack repo does its own runtime page-size
// syscall wrapper).
var pageSize = unix.Getpagesize()

// FlatAddressSpace is the default AddressSpace: a sparse, page-indexed map
// simulating a flat virtual address space. Pages are allocated lazily and
// only for ranges actually written, so a high address like the simulated
// user stack (spec §4.2) does not force materializing every byte below it
// — real paging, protection bits, and copy-on-write remain OUT OF SCOPE
// (spec.md §1), but a sparse backing store keeps the simulation's memory
// use proportional to what is actually mapped, the way real page tables do.
type FlatAddressSpace struct {
	pages  map[uint64][]byte // page number -> page-size bytes
	closed bool
}

// NewFlatAddressSpace returns an empty address space.
func NewFlatAddressSpace() *FlatAddressSpace {
	return &FlatAddressSpace{pages: make(map[uint64][]byte)}
}

func (a *FlatAddressSpace) page(pageNo uint64, create bool) []byte {
	p, ok := a.pages[pageNo]
	if !ok {
		if !create {
			return nil
		}
		p = make([]byte, pageSize)
		a.pages[pageNo] = p
	}
	return p
}

// WriteAt implements AddressSpace, splitting data across whatever pages it
// spans and allocating each lazily.
func (a *FlatAddressSpace) WriteAt(va uintptr, data []byte) error {
	if a.closed {
		return fmt.Errorf("envkernel: write to closed address space: %w", Inval)
	}
	addr := uint64(va)
	for len(data) > 0 {
		pageNo := addr / uint64(pageSize)
		off := int(addr % uint64(pageSize))
		n := copy(a.page(pageNo, true)[off:], data)
		data = data[n:]
		addr += uint64(n)
	}
	return nil
}

// ReadAt implements AddressSpace; any byte in an unmapped page reads back
// as zero, matching a freshly mapped (BSS-style) page.
func (a *FlatAddressSpace) ReadAt(va uintptr, into []byte) error {
	if a.closed {
		return fmt.Errorf("envkernel: read from closed address space: %w", Inval)
	}
	addr := uint64(va)
	for len(into) > 0 {
		pageNo := addr / uint64(pageSize)
		off := int(addr % uint64(pageSize))
		p := a.page(pageNo, false)
		var n int
		if p == nil {
			n = len(into)
			if n > pageSize-off {
				n = pageSize - off
			}
			for i := 0; i < n; i++ {
				into[i] = 0
			}
		} else {
			n = copy(into, p[off:])
		}
		into = into[n:]
		addr += uint64(n)
	}
	return nil
}

// Close implements AddressSpace.
func (a *FlatAddressSpace) Close() error {
	a.closed = true
	a.pages = nil
	return nil
}

//go:build amd64

package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// page is one mmap'd block of machine code. It is allocated RW, written to,
// then flipped to RX before any code in it runs; it is never RW and X at
// the same time (W^X), following the address-space-reservation technique
// used for executable regions in the retrieved corpus.
type page struct {
	mem []byte
}

const pageSize = 4096

func allocPage(size int) (*page, error) {
	n := ((size + pageSize - 1) / pageSize) * pageSize
	if n == 0 {
		n = pageSize
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap: %w", err)
	}
	return &page{mem: mem}, nil
}

func (p *page) makeExecutable() error {
	if err := unix.Mprotect(p.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("jit: mprotect rx: %w", err)
	}
	return nil
}

func (p *page) free() error {
	return unix.Munmap(p.mem)
}

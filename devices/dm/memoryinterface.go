// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import (
	"math"

	"periph.io/x/riscvdebug/conn/riscv"
)

// SupportsNativeWideAccess reports whether the engine can perform a single
// bus transaction wider than 32 bits. It cannot: 64-bit transfers are
// always composed of two 32-bit little-endian words.
func (d *Interface) SupportsNativeWideAccess() bool { return false }

// checkAddress validates that a 64-bit address argument fits in the
// target's 32-bit address space.
func checkAddress(addr uint64) (uint32, error) {
	if addr > math.MaxUint32 {
		return 0, riscv.NewUnsupportedBusAccessWidthError(riscv.A64)
	}
	return uint32(addr), nil
}

// dispatchMethod returns the engine that access_method discovery chose for
// width w at attach, failing for widths routed to AbstractCommand.
func (d *Interface) dispatchMethod(w riscv.BusAccess) (accessMethod, error) {
	m := d.state.methodFor(w)
	if m == methodAbstractCommand {
		return m, riscv.NewUnsupportedBusAccessWidthError(w)
	}
	return m, nil
}

// ReadWord8 reads a single byte at addr.
func (d *Interface) ReadWord8(addr uint64) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return 0, err
	}
	v, err := d.readWord(a, riscv.A8)
	return uint8(v), err
}

// WriteWord8 writes a single byte at addr.
func (d *Interface) WriteWord8(addr uint64, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	return d.writeWord(a, riscv.A8, uint32(value))
}

// ReadWord32 reads a single 32-bit word at addr.
func (d *Interface) ReadWord32(addr uint64) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return 0, err
	}
	return d.readWord(a, riscv.A32)
}

// WriteWord32 writes a single 32-bit word at addr.
func (d *Interface) WriteWord32(addr uint64, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	return d.writeWord(a, riscv.A32, value)
}

// ReadWord64 reads a 64-bit word at addr, composed from two 32-bit
// little-endian words at addr and addr+4.
func (d *Interface) ReadWord64(addr uint64) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return 0, err
	}
	lo, err := d.readWord(a, riscv.A32)
	if err != nil {
		return 0, err
	}
	hi, err := d.readWord(a+4, riscv.A32)
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// WriteWord64 writes a 64-bit word at addr, decomposed into two 32-bit
// little-endian words at addr and addr+4.
func (d *Interface) WriteWord64(addr uint64, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	if err := d.writeWord(a, riscv.A32, uint32(value)); err != nil {
		return err
	}
	return d.writeWord(a+4, riscv.A32, uint32(value>>32))
}

// Read8 fills dst with n bytes starting at addr.
func (d *Interface) Read8(addr uint64, dst []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	words, err := d.readMulti(a, riscv.A8, len(dst))
	if err != nil {
		return err
	}
	for i, v := range words {
		dst[i] = uint8(v)
	}
	return nil
}

// Read32 fills dst with len(dst) 32-bit words starting at addr.
func (d *Interface) Read32(addr uint64, dst []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	words, err := d.readMulti(a, riscv.A32, len(dst))
	if err != nil {
		return err
	}
	copy(dst, words)
	return nil
}

// Write8 writes src as consecutive bytes starting at addr.
func (d *Interface) Write8(addr uint64, src []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	values := make([]uint32, len(src))
	for i, b := range src {
		values[i] = uint32(b)
	}
	return d.writeMulti(a, riscv.A8, values)
}

// Write32 writes src as consecutive 32-bit words starting at addr.
func (d *Interface) Write32(addr uint64, src []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	return d.writeMulti(a, riscv.A32, src)
}

// Read64 fills dst with len(dst) 64-bit words starting at addr, each
// composed from a little-endian pair of 32-bit words, the same way
// ReadWord64 composes a single one — read as one multi-word run of
// 2*len(dst) 32-bit words (pipelined when the system bus serves it), since the low/high halves of consecutive
// 64-bit words are themselves consecutive 32-bit addresses.
func (d *Interface) Read64(addr uint64, dst []uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	words, err := d.readMulti(a, riscv.A32, len(dst)*2)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = uint64(words[2*i]) | uint64(words[2*i+1])<<32
	}
	return nil
}

// Write64 writes src as consecutive 64-bit words starting at addr, each
// decomposed into a little-endian pair of 32-bit words and written as one
// multi-word run of 2*len(src) 32-bit words.
func (d *Interface) Write64(addr uint64, src []uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	words := make([]uint32, len(src)*2)
	for i, v := range src {
		words[2*i] = uint32(v)
		words[2*i+1] = uint32(v >> 32)
	}
	return d.writeMulti(a, riscv.A32, words)
}

// Flush is a no-op: every engine drains its DMI pipeline at each
// transaction boundary, so there is nothing deferred across calls.
func (d *Interface) Flush() error { return nil }

// readWord performs a single-word read of width w through whichever engine
// access_method discovery assigned to it.
func (d *Interface) readWord(addr uint32, w riscv.BusAccess) (uint32, error) {
	method, err := d.dispatchMethod(w)
	if err != nil {
		return 0, err
	}
	switch method {
	case methodSystemBus:
		lo, _, err := d.sysbusReadSingle(addr, w)
		return uint32(lo), err
	default:
		return d.progbufReadSingle(addr, w)
	}
}

// writeWord performs a single-word write of width w through whichever
// engine access_method discovery assigned to it.
func (d *Interface) writeWord(addr uint32, w riscv.BusAccess, value uint32) error {
	method, err := d.dispatchMethod(w)
	if err != nil {
		return err
	}
	switch method {
	case methodSystemBus:
		return d.sysbusWrite(addr, w, []uint32{value})
	default:
		return d.progbufWriteSingle(addr, w, value)
	}
}

// readMulti performs a multi-word read of width w through whichever engine
// access_method discovery assigned to it.
func (d *Interface) readMulti(addr uint32, w riscv.BusAccess, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	method, err := d.dispatchMethod(w)
	if err != nil {
		return nil, err
	}
	switch method {
	case methodSystemBus:
		return d.sysbusReadMulti(addr, w, n)
	default:
		return d.progbufReadMulti(addr, w, n)
	}
}

// writeMulti performs a multi-word write of width w through whichever
// engine access_method discovery assigned to it.
func (d *Interface) writeMulti(addr uint32, w riscv.BusAccess, values []uint32) error {
	if len(values) == 0 {
		return nil
	}
	method, err := d.dispatchMethod(w)
	if err != nil {
		return err
	}
	switch method {
	case methodSystemBus:
		return d.sysbusWrite(addr, w, values)
	default:
		return d.progbufWriteMulti(addr, w, values)
	}
}

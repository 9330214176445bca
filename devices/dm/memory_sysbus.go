// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// sysbusCheckError reads sbcs back and translates a latched sberror into
// the collapsed SystemBusAccess error; sub-codes are not surfaced.
func (d *Interface) sysbusCheckError() error {
	v, err := d.readRegister(addrSbcs)
	if err != nil {
		return err
	}
	if Sbcs(v).SbError() != 0 {
		return riscv.ErrSystemBusAccess
	}
	return nil
}

// sysbusReadSingle performs a single system-bus read of width w at addr.
func (d *Interface) sysbusReadSingle(addr uint32, w riscv.BusAccess) (lo, hi uint64, err error) {
	var cs Sbcs
	cs.SetSbAccess(w)
	cs.SetSbReadOnAddr(true)
	if err := d.writeRegister(addrSbcs, uint32(cs)); err != nil {
		return 0, 0, err
	}
	if err := d.writeRegister(addrSbAddress0, addr); err != nil {
		return 0, 0, err
	}

	slots := wideSlotCount(w.ByteWidth())
	addrs := slotAddresses(sbdataAddress, slots)
	values, err := d.readWideSlots(addrs)
	if err != nil {
		return 0, 0, err
	}
	if err := d.sysbusCheckError(); err != nil {
		return 0, 0, err
	}
	lo, hi = joinWide(values)
	return lo, hi, nil
}

// sysbusReadMulti performs a multi-word system-bus read of n words of width
// w starting at addr, using autoincrement and a pipelined, deferred
// transaction sequence. Only widths up to 32 bits are supported by the
// multi-word engines.
func (d *Interface) sysbusReadMulti(addr uint32, w riscv.BusAccess, n int) ([]uint32, error) {
	if w.ByteWidth() > 4 {
		return nil, riscv.NewUnsupportedBusAccessWidthError(w)
	}

	var cs Sbcs
	cs.SetSbAccess(w)
	cs.SetSbReadOnAddr(true)
	cs.SetSbReadOnData(true)
	cs.SetSbAutoincrement(true)
	if err := d.scheduleWrite(addrSbcs, uint32(cs)); err != nil {
		return nil, err
	}
	if err := d.scheduleWrite(addrSbAddress0, addr); err != nil {
		return nil, err
	}

	indices := make([]riscv.DeferredResultIndex, n)
	for i := 0; i < n-1; i++ {
		idx, err := d.scheduleRead(addrSbData0)
		if err != nil {
			return nil, err
		}
		indices[i] = idx
	}

	var csNoIncrement Sbcs
	csNoIncrement.SetSbAccess(w)
	csNoIncrement.SetSbReadOnAddr(true)
	csNoIncrement.SetSbReadOnData(true)
	if err := d.scheduleWrite(addrSbcs, uint32(csNoIncrement)); err != nil {
		return nil, err
	}
	lastIdx, err := d.scheduleRead(addrSbData0)
	if err != nil {
		return nil, err
	}
	indices[n-1] = lastIdx

	statusIdx, err := d.scheduleRead(addrSbcs)
	if err != nil {
		return nil, err
	}

	results, err := d.execute()
	if err != nil {
		return nil, err
	}

	if Sbcs(results[statusIdx]).SbError() != 0 {
		return nil, riscv.ErrSystemBusAccess
	}

	out := make([]uint32, n)
	for i, idx := range indices {
		out[i] = uint32(results[idx])
	}
	return out, nil
}

// sysbusWrite performs a single- or multi-word system-bus write of values
// (each a 32-bit-or-narrower word) of width w starting at addr.
func (d *Interface) sysbusWrite(addr uint32, w riscv.BusAccess, values []uint32) error {
	var cs Sbcs
	cs.SetSbAccess(w)
	cs.SetSbAutoincrement(true)
	if err := d.writeRegister(addrSbcs, uint32(cs)); err != nil {
		return err
	}
	if err := d.writeRegister(addrSbAddress0, addr); err != nil {
		return err
	}
	for _, v := range values {
		if err := d.writeRegister(addrSbData0, v); err != nil {
			return err
		}
	}
	return d.sysbusCheckError()
}

// sysbusWriteWide performs a single wide (64/128-bit) system-bus write at
// addr, writing slots in the documented highest-first, slot-0-last order.
func (d *Interface) sysbusWriteWide(addr uint32, w riscv.BusAccess, lo, hi uint64) error {
	var cs Sbcs
	cs.SetSbAccess(w)
	if err := d.writeRegister(addrSbcs, uint32(cs)); err != nil {
		return err
	}
	if err := d.writeRegister(addrSbAddress0, addr); err != nil {
		return err
	}

	slots := splitWide(lo, hi, w.ByteWidth())
	addrs := slotAddresses(sbdataAddress, len(slots))
	if err := d.writeWideSlots(addrs, slots); err != nil {
		return err
	}
	return d.sysbusCheckError()
}

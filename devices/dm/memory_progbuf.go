// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// scratchSave reads the current architectural values of s0 and s1 via
// abstract command, for restoration once a program-buffer operation
// completes (on every exit path, including error).
func (d *Interface) scratchSave() (s0, s1 uint32, err error) {
	s0, err = d.abstractCmdRegisterRead(riscv.S0)
	if err != nil {
		return 0, 0, err
	}
	s1, err = d.abstractCmdRegisterRead(riscv.S1)
	if err != nil {
		return 0, 0, err
	}
	return s0, s1, nil
}

// scratchRestore writes s0 and s1 back, swallowing nothing: the caller
// decides which of this error or an earlier one to report.
func (d *Interface) scratchRestore(s0, s1 uint32) error {
	if err := d.abstractCmdRegisterWrite(riscv.S0, s0); err != nil {
		return err
	}
	return d.abstractCmdRegisterWrite(riscv.S1, s1)
}

// progbufReadSingle reads one word of width w from addr through the
// program buffer, using s0 as the address/result register.
func (d *Interface) progbufReadSingle(addr uint32, w riscv.BusAccess) (uint32, error) {
	savedS0, savedS1, err := d.scratchSave()
	if err != nil {
		return 0, err
	}

	program := []uint32{asmLoad(8, 8, 0, w)}
	result, cmdErr := d.progbufReadSingleBody(addr, program)

	if restoreErr := d.scratchRestore(savedS0, savedS1); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return result, cmdErr
}

func (d *Interface) progbufReadSingleBody(addr uint32, program []uint32) (uint32, error) {
	if err := d.setupProgramBuffer(program); err != nil {
		return 0, err
	}
	if err := d.writeRegister(addrData0, addr); err != nil {
		return 0, err
	}
	cmd := accessRegisterCommand(riscv.S0, true, true, true, riscv.A32)
	if err := d.executeAbstractCommand(cmd); err != nil {
		return 0, err
	}
	return d.abstractCmdRegisterRead(riscv.S0)
}

// progbufReadMulti reads n words of width w starting at addr through the
// program buffer, incrementing s0 by the access width after each load and
// relaying the loaded value through s1.
func (d *Interface) progbufReadMulti(addr uint32, w riscv.BusAccess, n int) ([]uint32, error) {
	savedS0, savedS1, err := d.scratchSave()
	if err != nil {
		return nil, err
	}

	out, cmdErr := d.progbufReadMultiBody(addr, w, n)

	if restoreErr := d.scratchRestore(savedS0, savedS1); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return out, cmdErr
}

func (d *Interface) progbufReadMultiBody(addr uint32, w riscv.BusAccess, n int) ([]uint32, error) {
	program := []uint32{
		asmLoad(9, 8, 0, w),
		asmAddi(8, 8, int32(w.ByteWidth())),
	}
	if err := d.setupProgramBuffer(program); err != nil {
		return nil, err
	}

	if err := d.writeRegister(addrData0, addr); err != nil {
		return nil, err
	}
	seed := accessRegisterCommand(riscv.S0, true, true, true, riscv.A32)
	if err := d.executeAbstractCommand(seed); err != nil {
		return nil, err
	}

	out := make([]uint32, n)
	for i := 0; i < n-1; i++ {
		cmd := accessRegisterCommand(riscv.S1, false, true, true, riscv.A32)
		if err := d.executeAbstractCommand(cmd); err != nil {
			return nil, err
		}
		v, err := d.readRegister(addrData0)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	last, err := d.abstractCmdRegisterRead(riscv.S1)
	if err != nil {
		return nil, err
	}
	out[n-1] = last
	return out, nil
}

// progbufWriteSingle writes one word of width w to addr through the
// program buffer, using s0 as the address and s1 as the value register.
func (d *Interface) progbufWriteSingle(addr uint32, w riscv.BusAccess, value uint32) error {
	savedS0, savedS1, err := d.scratchSave()
	if err != nil {
		return err
	}

	cmdErr := d.progbufWriteSingleBody(addr, w, value)

	if restoreErr := d.scratchRestore(savedS0, savedS1); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return cmdErr
}

func (d *Interface) progbufWriteSingleBody(addr uint32, w riscv.BusAccess, value uint32) error {
	program := []uint32{asmStore(8, 9, 0, w)}
	if err := d.setupProgramBuffer(program); err != nil {
		return err
	}

	if err := d.abstractCmdRegisterWrite(riscv.S0, addr); err != nil {
		return err
	}
	if err := d.writeRegister(addrData0, value); err != nil {
		return err
	}
	cmd := accessRegisterCommand(riscv.S1, true, true, true, riscv.A32)
	return d.executeAbstractCommand(cmd)
}

// progbufWriteMulti writes values (each of width w) starting at addr
// through the program buffer, incrementing s0 by the access width after
// each store.
func (d *Interface) progbufWriteMulti(addr uint32, w riscv.BusAccess, values []uint32) error {
	savedS0, savedS1, err := d.scratchSave()
	if err != nil {
		return err
	}

	cmdErr := d.progbufWriteMultiBody(addr, w, values)

	if restoreErr := d.scratchRestore(savedS0, savedS1); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return cmdErr
}

func (d *Interface) progbufWriteMultiBody(addr uint32, w riscv.BusAccess, values []uint32) error {
	program := []uint32{
		asmStore(8, 9, 0, w),
		asmAddi(8, 8, int32(w.ByteWidth())),
	}
	if err := d.setupProgramBuffer(program); err != nil {
		return err
	}

	if err := d.abstractCmdRegisterWrite(riscv.S0, addr); err != nil {
		return err
	}

	for _, v := range values {
		if err := d.writeRegister(addrData0, v); err != nil {
			return err
		}
		// executeAbstractCommand clears cmderr after a failure, so each
		// command's error is reported as soon as it happens.
		cmd := accessRegisterCommand(riscv.S1, true, true, true, riscv.A32)
		if err := d.executeAbstractCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// ReadCSRProgbuf reads CSR csrAddr (a 12-bit CSR address) through the
// program buffer, saving and restoring s0 around the transfer.
func (d *Interface) ReadCSRProgbuf(csrAddr uint16) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	savedS0, err := d.abstractCmdRegisterRead(riscv.S0)
	if err != nil {
		return 0, err
	}

	value, cmdErr := d.readCSRProgbufBody(csrAddr)

	if restoreErr := d.abstractCmdRegisterWrite(riscv.S0, savedS0); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return value, cmdErr
}

func (d *Interface) readCSRProgbufBody(csrAddr uint16) (uint32, error) {
	program := []uint32{asmCsrr(8, uint32(csrAddr))}
	if err := d.setupProgramBuffer(program); err != nil {
		return 0, err
	}
	cmd := accessRegisterCommand(riscv.S0, false, false, true, riscv.A32)
	if err := d.executeAbstractCommand(cmd); err != nil {
		return 0, err
	}
	return d.abstractCmdRegisterRead(riscv.S0)
}

// WriteCSRProgbuf writes value to CSR csrAddr through the program buffer,
// saving and restoring s0 around the transfer.
func (d *Interface) WriteCSRProgbuf(csrAddr uint16, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	savedS0, err := d.abstractCmdRegisterRead(riscv.S0)
	if err != nil {
		return err
	}

	cmdErr := d.writeCSRProgbufBody(csrAddr, value)

	if restoreErr := d.abstractCmdRegisterWrite(riscv.S0, savedS0); restoreErr != nil && cmdErr == nil {
		cmdErr = restoreErr
	}
	return cmdErr
}

func (d *Interface) writeCSRProgbufBody(csrAddr uint16, value uint32) error {
	if err := d.abstractCmdRegisterWrite(riscv.S0, value); err != nil {
		return err
	}
	program := []uint32{asmCsrw(uint32(csrAddr), 8)}
	if err := d.setupProgramBuffer(program); err != nil {
		return err
	}
	cmd := accessRegisterCommand(riscv.S0, false, false, true, riscv.A32)
	return d.executeAbstractCommand(cmd)
}

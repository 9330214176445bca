// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import (
	"time"

	"periph.io/x/riscvdebug/conn/riscv"
)

// executeAbstractCommand runs the full precondition/issue/poll/decode cycle
// for one abstract command word.
func (d *Interface) executeAbstractCommand(cmd uint32) error {
	var ctrl Dmcontrol
	ctrl.SetAckHaveReset(true)
	ctrl.SetDmActive(true)
	if err := d.writeRegister(addrDmControl, uint32(ctrl)); err != nil {
		return err
	}

	csVal, err := d.readRegister(addrAbstractCS)
	if err != nil {
		return err
	}
	if AbstractCS(csVal).CmdErr() != riscv.CmdErrNone {
		if err := d.writeRegister(addrAbstractCS, uint32(clearCmdErr())); err != nil {
			return err
		}
	}

	if err := d.writeRegister(addrCommand, cmd); err != nil {
		return err
	}

	deadline := time.Now().Add(dmiTimeout)
	var cmderr riscv.AbstractCommandErrorKind
	for {
		v, err := d.readRegister(addrAbstractCS)
		if err != nil {
			return err
		}
		acs := AbstractCS(v)
		if !acs.Busy() {
			cmderr = acs.CmdErr()
			break
		}
		if time.Now().After(deadline) {
			return riscv.ErrTimeout
		}
	}

	if cmderr != riscv.CmdErrNone {
		if err := d.writeRegister(addrAbstractCS, uint32(clearCmdErr())); err != nil {
			return err
		}
		return riscv.NewAbstractCommandError(cmderr)
	}
	return nil
}

// accessRegisterCommand builds the command word for an Access Register
// Command targeting regno.
func accessRegisterCommand(regno riscv.RegisterID, write, transfer, postexec bool, size riscv.BusAccess) uint32 {
	var c AccessRegisterCommand
	c.SetAarSize(size)
	c.SetTransfer(transfer)
	c.SetWrite(write)
	c.SetPostexec(postexec)
	c.SetRegno(regno)
	return uint32(c)
}

// abstractCmdRegisterRead reads register id via an abstract command,
// honoring and updating the per-register capability memoization: once a
// read of id is observed unsupported, later calls short-circuit without
// issuing any DMI traffic.
func (d *Interface) abstractCmdRegisterRead(id riscv.RegisterID) (uint32, error) {
	if !d.state.canRead(id) {
		return 0, riscv.NewAbstractCommandError(riscv.CmdErrNotSupported)
	}

	cmd := accessRegisterCommand(id, false, true, false, riscv.A32)
	if err := d.executeAbstractCommand(cmd); err != nil {
		if rerr, ok := err.(*riscv.Error); ok && rerr.Kind == riscv.KindAbstractCommand && rerr.AbstractCmdErr == riscv.CmdErrNotSupported {
			d.state.clearRead(id)
		}
		return 0, err
	}
	return d.readRegister(addrData0)
}

// abstractCmdRegisterWrite writes value to register id via an abstract
// command, applying the same capability memoization as
// abstractCmdRegisterRead. The value is 32 bits wide: it is written to data0
// alone and the command posts with aarsize 32; wider register writes are not
// supported.
func (d *Interface) abstractCmdRegisterWrite(id riscv.RegisterID, value uint32) error {
	if !d.state.canWrite(id) {
		return riscv.NewAbstractCommandError(riscv.CmdErrNotSupported)
	}

	if err := d.writeRegister(addrData0, value); err != nil {
		return err
	}
	cmd := accessRegisterCommand(id, true, true, false, riscv.A32)
	if err := d.executeAbstractCommand(cmd); err != nil {
		if rerr, ok := err.(*riscv.Error); ok && rerr.Kind == riscv.KindAbstractCommand && rerr.AbstractCmdErr == riscv.CmdErrNotSupported {
			d.state.clearWrite(id)
		}
		return err
	}
	return nil
}

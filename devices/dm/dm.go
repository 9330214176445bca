// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import (
	"fmt"
	"math/bits"
	"sync"
	"time"

	"periph.io/x/riscvdebug/conn/riscv"
)

// dmiTimeout bounds every DMI access and abstract-command busy-poll, per
// the debug specification's host-side recommendation.
const dmiTimeout = 5 * time.Second

// Interface drives one RISC-V Debug Module over a riscv.Dtm: capability
// discovery at attach, typed register and CSR access, and memory transfer
// through whichever of system bus or program buffer the target supports.
//
// It owns the Dtm exclusively for its lifetime, the way devices/ds248x.Dev
// owns its i2c.Bus; Close hands the Dtm back to the caller.
type Interface struct {
	mu    sync.Mutex
	dtm   riscv.Dtm
	state *interfaceState
}

// New attaches to the Debug Module reachable over dtm, running the v0.13
// discovery sequence once. It fails if the target's dmstatus.version is not
// 0.13.
func New(dtm riscv.Dtm) (*Interface, error) {
	iface := &Interface{
		dtm:   dtm,
		state: newInterfaceState(),
	}
	if err := iface.discover(); err != nil {
		return nil, err
	}
	return iface, nil
}

// String implements fmt.Stringer.
func (d *Interface) String() string {
	return fmt.Sprintf("dm.Interface{%s}", d.state.debugVersion)
}

// Close releases the Debug Module and returns the Dtm to the caller, per
// the interface's exclusive-ownership / DTM-ownership-transfer contract.
func (d *Interface) Close() (riscv.Dtm, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dtm := d.dtm
	d.dtm = nil
	return dtm, nil
}

// ReadIDCode forwards to the underlying Dtm, so a caller need not downcast
// to reach the TAP IDCODE mid-session.
func (d *Interface) ReadIDCode() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.dtm.ReadIDCode()
	if err != nil {
		return 0, riscv.WrapDebugProbe(err)
	}
	return v, nil
}

// TargetResetDeassert forwards to the underlying Dtm.
func (d *Interface) TargetResetDeassert() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dtm.TargetResetDeassert(); err != nil {
		return riscv.WrapDebugProbe(err)
	}
	return nil
}

// readRegister performs the two-phase DMI read (Read, then NoOp to collect
// the result) documented for every DM register access.
func (d *Interface) readRegister(addr uint8) (uint32, error) {
	if _, err := d.dtm.DMIAccess(uint32(addr), 0, riscv.DmiRead, dmiTimeout); err != nil {
		return 0, riscv.WrapDmiTransfer(err)
	}
	v, err := d.dtm.DMIAccess(uint32(addr), 0, riscv.DmiNoOp, dmiTimeout)
	if err != nil {
		return 0, riscv.WrapDmiTransfer(err)
	}
	return v, nil
}

// writeRegister performs a single DMI write.
func (d *Interface) writeRegister(addr uint8, value uint32) error {
	if _, err := d.dtm.DMIAccess(uint32(addr), value, riscv.DmiWrite, dmiTimeout); err != nil {
		return riscv.WrapDmiTransfer(err)
	}
	return nil
}

// scheduleRead enqueues the two-phase read without blocking for its result,
// returning the index of the NoOp that carries the intended value.
func (d *Interface) scheduleRead(addr uint8) (riscv.DeferredResultIndex, error) {
	if _, err := d.dtm.ScheduleDMIAccess(uint32(addr), 0, riscv.DmiRead); err != nil {
		return 0, riscv.WrapDmiTransfer(err)
	}
	idx, err := d.dtm.ScheduleDMIAccess(uint32(addr), 0, riscv.DmiNoOp)
	if err != nil {
		return 0, riscv.WrapDmiTransfer(err)
	}
	return idx, nil
}

// scheduleWrite enqueues a single DMI write.
func (d *Interface) scheduleWrite(addr uint8, value uint32) error {
	if _, err := d.dtm.ScheduleDMIAccess(uint32(addr), value, riscv.DmiWrite); err != nil {
		return riscv.WrapDmiTransfer(err)
	}
	return nil
}

// execute drains the scheduled DMI pipeline.
func (d *Interface) execute() ([]riscv.CommandResult, error) {
	results, err := d.dtm.Execute()
	if err != nil {
		return nil, riscv.WrapDmiTransfer(err)
	}
	return results, nil
}

// discover runs the one-shot attach enumeration protocol.
func (d *Interface) discover() error {
	if err := d.dtm.Reset(); err != nil {
		return riscv.WrapDebugProbe(err)
	}

	status, err := d.readRegister(addrDmStatus)
	if err != nil {
		return err
	}
	dmstatus := Dmstatus(status)
	version := riscv.ParseDebugModuleVersion(dmstatus.Version())
	if !version.IsV013() {
		return riscv.NewUnsupportedDebugModuleVersionError(version)
	}
	d.state.debugVersion = version
	d.state.impEBreak = dmstatus.ImpEBreak()

	if dmstatus.ConfStrPtrValid() {
		for i := 0; i < 4; i++ {
			v, err := d.readRegister(confstrptrAddress(i))
			if err != nil {
				return err
			}
			d.state.confstrptr[i] = v
		}
		d.state.confstrptrSet = true
	}

	var ctrl Dmcontrol
	ctrl.SetDmActive(true)
	if err := d.writeRegister(addrDmControl, uint32(ctrl)); err != nil {
		return err
	}
	ctrl.SetHartSel(0xfffff)
	if err := d.writeRegister(addrDmControl, uint32(ctrl)); err != nil {
		return err
	}
	readback, err := d.readRegister(addrDmControl)
	if err != nil {
		return err
	}
	d.state.hartsellen = uint8(bits.OnesCount32(Dmcontrol(readback).HartSel()))

	numHarts := uint32(1)
	maxHarts := uint32(1) << d.state.hartsellen
	for i := uint32(1); i < maxHarts; i++ {
		var c Dmcontrol
		c.SetDmActive(true)
		c.SetHartSel(i)
		if err := d.writeRegister(addrDmControl, uint32(c)); err != nil {
			return err
		}
		s, err := d.readRegister(addrDmStatus)
		if err != nil {
			return err
		}
		if Dmstatus(s).AnyNonExistent() {
			break
		}
		numHarts = i + 1
	}
	d.state.numHarts = numHarts

	var reselect Dmcontrol
	reselect.SetDmActive(true)
	reselect.SetHartSel(0)
	if err := d.writeRegister(addrDmControl, uint32(reselect)); err != nil {
		return err
	}

	abstractcsVal, err := d.readRegister(addrAbstractCS)
	if err != nil {
		return err
	}
	abstractcs := AbstractCS(abstractcsVal)
	d.state.progbufSize = abstractcs.ProgbufSize()
	d.state.dataRegisterCount = abstractcs.DataCount()

	hartinfoVal, err := d.readRegister(addrHartInfo)
	if err != nil {
		return err
	}
	d.state.nscratch = HartInfo(hartinfoVal).Nscratch()

	var probe Abstractauto
	probe.SetAutoexecProgbuf(uint32(1)<<d.state.progbufSize - 1)
	probe.SetAutoexecData(uint32(1)<<d.state.dataRegisterCount - 1)
	if err := d.writeRegister(addrAbstractAuto, uint32(probe)); err != nil {
		return err
	}
	probeReadback, err := d.readRegister(addrAbstractAuto)
	if err != nil {
		return err
	}
	d.state.supportsAutoexec = probeReadback == uint32(probe)
	if err := d.writeRegister(addrAbstractAuto, 0); err != nil {
		return err
	}

	sbcsVal, err := d.readRegister(addrSbcs)
	if err != nil {
		return err
	}
	sbcs := Sbcs(sbcsVal)
	if sbcs.SbVersion() == 1 {
		if sbcs.SbAccess8() {
			d.state.accessMethod[riscv.A8] = methodSystemBus
		}
		if sbcs.SbAccess16() {
			d.state.accessMethod[riscv.A16] = methodSystemBus
		}
		if sbcs.SbAccess32() {
			d.state.accessMethod[riscv.A32] = methodSystemBus
		}
		if sbcs.SbAccess64() {
			d.state.accessMethod[riscv.A64] = methodSystemBus
		}
		if sbcs.SbAccess128() {
			d.state.accessMethod[riscv.A128] = methodSystemBus
		}
	}

	return nil
}

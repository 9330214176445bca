// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import (
	"testing"
	"time"

	"periph.io/x/riscvdebug/conn/riscv"
	"periph.io/x/riscvdebug/conn/riscv/riscvtest"
)

// readOp builds the (Read, NoOp) pair that a register read performs, with
// result attached to the NoOp half, matching how the Dtm actually returns
// data one transaction late.
func readOp(addr, result uint32) []riscvtest.Op {
	return []riscvtest.Op{
		{Address: addr, DmiOp: riscv.DmiRead},
		{Address: addr, DmiOp: riscv.DmiNoOp, Result: result},
	}
}

func writeOp(addr, value uint32) riscvtest.Op {
	return riscvtest.Op{Address: addr, Data: value, DmiOp: riscv.DmiWrite}
}

// discoveryOps builds the fixed sequence New() issues for a single-hart
// target with no confstrptr, matching scenario S1.
func discoveryOps(dmstatus, abstractcs, hartinfo, sbcs uint32) []riscvtest.Op {
	var ops []riscvtest.Op
	ops = append(ops, readOp(addrDmStatus, dmstatus)...)

	var ctrl Dmcontrol
	ctrl.SetDmActive(true)
	ops = append(ops, writeOp(addrDmControl, uint32(ctrl)))
	ctrl.SetHartSel(0xfffff)
	ops = append(ops, writeOp(addrDmControl, uint32(ctrl)))
	ops = append(ops, readOp(addrDmControl, uint32(ctrl))...)

	// Hart enumeration: hart 1 reports anynonexistent, so only hart 0 exists.
	var hart1 Dmcontrol
	hart1.SetDmActive(true)
	hart1.SetHartSel(1)
	ops = append(ops, writeOp(addrDmControl, uint32(hart1)))
	ops = append(ops, readOp(addrDmStatus, setBit(0, 14, true))...)

	var reselect Dmcontrol
	reselect.SetDmActive(true)
	reselect.SetHartSel(0)
	ops = append(ops, writeOp(addrDmControl, uint32(reselect)))

	ops = append(ops, readOp(addrAbstractCS, abstractcs)...)
	ops = append(ops, readOp(addrHartInfo, hartinfo)...)

	progbufSize := AbstractCS(abstractcs).ProgbufSize()
	dataCount := AbstractCS(abstractcs).DataCount()
	var probe Abstractauto
	probe.SetAutoexecProgbuf(uint32(1)<<progbufSize - 1)
	probe.SetAutoexecData(uint32(1)<<dataCount - 1)
	ops = append(ops, writeOp(addrAbstractAuto, uint32(probe)))
	ops = append(ops, readOp(addrAbstractAuto, uint32(probe))...)
	ops = append(ops, writeOp(addrAbstractAuto, 0))

	ops = append(ops, readOp(addrSbcs, sbcs)...)
	return ops
}

func TestAttachS1(t *testing.T) {
	var dmstatus Dmstatus
	dmstatus = Dmstatus(setBits(uint32(dmstatus), 3, 0, 2))
	dmstatus = Dmstatus(setBit(uint32(dmstatus), 22, true)) // impebreak

	var abstractcs AbstractCS
	abstractcs = AbstractCS(setBits(uint32(abstractcs), 28, 24, 8)) // progbufsize
	abstractcs = AbstractCS(setBits(uint32(abstractcs), 3, 0, 2))   // datacount

	var hartinfo HartInfo
	hartinfo = HartInfo(setBits(uint32(hartinfo), 23, 20, 1))

	var sbcs Sbcs
	sbcs = Sbcs(setBits(uint32(sbcs), 31, 29, 1))
	sbcs = Sbcs(setBit(uint32(sbcs), 0, true)) // sbaccess8
	sbcs = Sbcs(setBit(uint32(sbcs), 2, true)) // sbaccess32

	pb := &riscvtest.Playback{
		Ops: discoveryOps(uint32(dmstatus), uint32(abstractcs), uint32(hartinfo), uint32(sbcs)),
	}

	iface, err := New(pb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops: %v", err)
	}

	if !iface.state.debugVersion.IsV013() {
		t.Fatalf("debugVersion = %s, want v0.13", iface.state.debugVersion)
	}
	if !iface.state.impEBreak {
		t.Fatal("impEBreak = false, want true")
	}
	if iface.state.progbufSize != 8 {
		t.Fatalf("progbufSize = %d, want 8", iface.state.progbufSize)
	}
	if iface.state.dataRegisterCount != 2 {
		t.Fatalf("dataRegisterCount = %d, want 2", iface.state.dataRegisterCount)
	}
	if m := iface.state.methodFor(riscv.A8); m != methodSystemBus {
		t.Fatalf("access_method[A8] = %v, want SystemBus", m)
	}
	if m := iface.state.methodFor(riscv.A32); m != methodSystemBus {
		t.Fatalf("access_method[A32] = %v, want SystemBus", m)
	}
	if m := iface.state.methodFor(riscv.A64); m != methodProgramBuffer {
		t.Fatalf("access_method[A64] = %v, want ProgramBuffer (default)", m)
	}
}

func TestReadWord32ViaSysbus(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}
	iface.state.accessMethod[riscv.A32] = methodSystemBus

	addr := uint32(0x20000000)
	var cs Sbcs
	cs.SetSbAccess(riscv.A32)
	cs.SetSbReadOnAddr(true)

	pb.Ops = []riscvtest.Op{
		writeOp(addrSbcs, uint32(cs)),
		writeOp(addrSbAddress0, addr),
	}
	pb.Ops = append(pb.Ops, readOp(addrSbData0, 0xDEADBEEF)...)
	pb.Ops = append(pb.Ops, readOp(addrSbcs, 0)...)

	v, err := iface.ReadWord32(uint64(addr))
	if err != nil {
		t.Fatalf("ReadWord32: %v", err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("ReadWord32 = %#x, want 0xDEADBEEF", v)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops: %v", err)
	}
}

func TestRead64ViaSysbusComposesTwo32BitWords(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}
	iface.state.accessMethod[riscv.A32] = methodSystemBus

	addr := uint32(0x2000)
	var cs Sbcs
	cs.SetSbAccess(riscv.A32)
	cs.SetSbReadOnAddr(true)
	cs.SetSbReadOnData(true)
	cs.SetSbAutoincrement(true)

	var csNoIncrement Sbcs
	csNoIncrement.SetSbAccess(riscv.A32)
	csNoIncrement.SetSbReadOnAddr(true)
	csNoIncrement.SetSbReadOnData(true)

	pb.Ops = []riscvtest.Op{
		writeOp(addrSbcs, uint32(cs)),
		writeOp(addrSbAddress0, addr),
	}
	pb.Ops = append(pb.Ops, readOp(addrSbData0, 0x00000001)...)
	pb.Ops = append(pb.Ops, readOp(addrSbData0, 0x00000002)...)
	pb.Ops = append(pb.Ops, readOp(addrSbData0, 0x00000003)...)
	pb.Ops = append(pb.Ops, writeOp(addrSbcs, uint32(csNoIncrement)))
	pb.Ops = append(pb.Ops, readOp(addrSbData0, 0x00000004)...)
	pb.Ops = append(pb.Ops, readOp(addrSbcs, 0)...)

	dst := make([]uint64, 2)
	if err := iface.Read64(uint64(addr), dst); err != nil {
		t.Fatalf("Read64: %v", err)
	}
	if want := uint64(0x0000000200000001); dst[0] != want {
		t.Fatalf("dst[0] = %#x, want %#x", dst[0], want)
	}
	if want := uint64(0x0000000400000003); dst[1] != want {
		t.Fatalf("dst[1] = %#x, want %#x", dst[1], want)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops: %v", err)
	}
}

func TestWriteWord8ViaProgbuf(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}
	iface.state.progbufSize = 8

	addr := uint32(0x10000001)
	val := uint32(0x42)

	program := []uint32{asmStore(8, 9, 0, riscv.A8)}
	var ops []riscvtest.Op

	// scratchSave: read s0, s1
	s0Read := accessRegisterCommand(riscv.S0, false, true, false, riscv.A32)
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, s0Read))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, readOp(addrData0, 0)...) // saved s0 = 0

	s1Read := accessRegisterCommand(riscv.S1, false, true, false, riscv.A32)
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, s1Read))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, readOp(addrData0, 0)...) // saved s1 = 0

	// program buffer upload
	ops = append(ops, writeOp(uint32(progbufAddress(0)), program[0]))
	ops = append(ops, writeOp(uint32(progbufAddress(1)), ebreak))

	// write address into s0
	ops = append(ops, writeOp(addrData0, addr))
	s0Write := accessRegisterCommand(riscv.S0, true, true, false, riscv.A32)
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, s0Write))
	ops = append(ops, readOp(addrAbstractCS, 0)...)

	// write value into data0, post postexec command via s1
	ops = append(ops, writeOp(addrData0, val))
	s1Postexec := accessRegisterCommand(riscv.S1, true, true, true, riscv.A32)
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, s1Postexec))
	ops = append(ops, readOp(addrAbstractCS, 0)...)

	// restore s0, s1
	ops = append(ops, writeOp(addrData0, 0))
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, accessRegisterCommand(riscv.S0, true, true, false, riscv.A32)))
	ops = append(ops, readOp(addrAbstractCS, 0)...)

	ops = append(ops, writeOp(addrData0, 0))
	ops = append(ops, writeOp(addrDmControl, dmActivePreconditionWord()))
	ops = append(ops, readOp(addrAbstractCS, 0)...)
	ops = append(ops, writeOp(addrCommand, accessRegisterCommand(riscv.S1, true, true, false, riscv.A32)))
	ops = append(ops, readOp(addrAbstractCS, 0)...)

	pb.Ops = ops

	if err := iface.progbufWriteSingle(addr, riscv.A8, val); err != nil {
		t.Fatalf("progbufWriteSingle: %v", err)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops: %v", err)
	}
}

func dmActivePreconditionWord() uint32 {
	var c Dmcontrol
	c.SetAckHaveReset(true)
	c.SetDmActive(true)
	return uint32(c)
}

func TestAbstractCmdRegisterReadMemoizesNotSupported(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}

	cmd := accessRegisterCommand(riscv.S0, false, true, false, riscv.A32)
	var cs AbstractCS
	cs = AbstractCS(setBits(uint32(cs), 10, 8, uint32(riscv.CmdErrNotSupported)))

	pb.Ops = []riscvtest.Op{
		writeOp(addrDmControl, dmActivePreconditionWord()),
	}
	pb.Ops = append(pb.Ops, readOp(addrAbstractCS, 0)...)
	pb.Ops = append(pb.Ops, writeOp(addrCommand, cmd))
	pb.Ops = append(pb.Ops, readOp(addrAbstractCS, uint32(cs))...)
	pb.Ops = append(pb.Ops, writeOp(addrAbstractCS, uint32(clearCmdErr())))

	_, err := iface.abstractCmdRegisterRead(riscv.S0)
	if err == nil {
		t.Fatal("expected NotSupported error")
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops: %v", err)
	}

	// Second call must short-circuit: no DMI ops issued.
	pb.Ops = nil
	_, err = iface.abstractCmdRegisterRead(riscv.S0)
	if err == nil {
		t.Fatal("expected NotSupported error on memoized call")
	}
	rerr, ok := err.(*riscv.Error)
	if !ok || rerr.Kind != riscv.KindAbstractCommand || rerr.AbstractCmdErr != riscv.CmdErrNotSupported {
		t.Fatalf("err = %v, want AbstractCommand(NotSupported)", err)
	}
}

func TestProgbufCacheSkipsSecondUpload(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}
	iface.state.progbufSize = 8

	program := []uint32{asmLoad(8, 8, 0, riscv.A32)}
	pb.Ops = []riscvtest.Op{
		writeOp(uint32(progbufAddress(0)), program[0]),
		writeOp(uint32(progbufAddress(1)), ebreak),
	}
	if err := iface.setupProgramBuffer(program); err != nil {
		t.Fatalf("first setupProgramBuffer: %v", err)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("unconsumed ops after first call: %v", err)
	}

	pb.Ops = nil
	if err := iface.setupProgramBuffer(program); err != nil {
		t.Fatalf("second setupProgramBuffer: %v", err)
	}
	if err := pb.Close(); err != nil {
		t.Fatalf("second call issued DMI ops: %v", err)
	}
}

func TestConfstrptr128Bit(t *testing.T) {
	pb := &riscvtest.Playback{}
	iface := &Interface{dtm: pb, state: newInterfaceState()}
	iface.state.confstrptrSet = true
	iface.state.confstrptr = [4]uint32{0x11, 0x22, 0x33, 0x44}

	lo, hi, valid := iface.confstrptr()
	if !valid {
		t.Fatal("confstrptr reported invalid")
	}
	// Limbs combine with shifts 0, 32, 64, 96 (the corrected pattern this
	// module implements, not the 0, 8, 16, 32 shifts in the source this was
	// ported from — see DESIGN.md).
	wantLo := uint64(0x22)<<32 | uint64(0x11)
	wantHi := uint64(0x44)<<32 | uint64(0x33)
	if lo != wantLo || hi != wantHi {
		t.Fatalf("confstrptr = (lo=%#x, hi=%#x), want (lo=%#x, hi=%#x)", lo, hi, wantLo, wantHi)
	}
}

func TestAbstractCommandTimeout(t *testing.T) {
	fn := &riscvtest.Func{
		DMIAccessFunc: func(address, data uint32, op riscv.DmiOp, timeout time.Duration) (uint32, error) {
			if address == addrAbstractCS {
				// busy forever
				return uint32(setBit(0, 12, true)), nil
			}
			return 0, nil
		},
	}
	iface := &Interface{dtm: fn, state: newInterfaceState()}

	start := time.Now()
	err := iface.executeAbstractCommand(0)
	elapsed := time.Since(start)

	rerr, ok := err.(*riscv.Error)
	if !ok || rerr.Kind != riscv.KindTimeout {
		t.Fatalf("err = %v, want Timeout", err)
	}
	if elapsed < dmiTimeout {
		t.Fatalf("returned before timeout elapsed: %v", elapsed)
	}
}

// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// DM register addresses, bit-exact per the v0.13.2 debug specification.
const (
	addrData0       = 0x04
	addrDmControl   = 0x10
	addrDmStatus    = 0x11
	addrHartInfo    = 0x12
	addrAbstractCS  = 0x16
	addrCommand     = 0x17
	addrAbstractAuto = 0x18
	addrConfStrPtr0 = 0x19
	addrProgbuf0    = 0x20
	addrSbAddress3  = 0x37
	addrSbcs        = 0x38
	addrSbAddress0  = 0x39
	addrSbData0     = 0x3c
)

// progbufSizeMax is the largest program buffer the debug specification
// allows (progbufsize is a 5-bit field, but the spec further bounds it to
// 16 words).
const progbufSizeMax = 16

// progbufAddress returns the DM address of progbuf register index i (0-based).
func progbufAddress(i int) uint8 {
	return uint8(addrProgbuf0 + i)
}

// confstrptrAddress returns the DM address of confstrptr register index i
// (0-based, 0..3).
func confstrptrAddress(i int) uint8 {
	return uint8(addrConfStrPtr0 + i)
}

// sbdataAddress returns the DM address of sbdata register index i (0-based,
// 0..3).
func sbdataAddress(i int) uint8 {
	return uint8(addrSbData0 + i)
}

// Dmstatus is the dmstatus register (0x11), read-only.
type Dmstatus uint32

// Version returns dmstatus.version[3:0].
func (d Dmstatus) Version() uint8 { return uint8(getBits(uint32(d), 3, 0)) }

// ConfStrPtrValid reports dmstatus.confstrptrvalid.
func (d Dmstatus) ConfStrPtrValid() bool { return getBit(uint32(d), 4) }

// ImpEBreak reports dmstatus.impebreak.
func (d Dmstatus) ImpEBreak() bool { return getBit(uint32(d), 22) }

// AnyNonExistent reports dmstatus.anynonexistent.
func (d Dmstatus) AnyNonExistent() bool { return getBit(uint32(d), 14) }

// AllHalted reports dmstatus.allhalted.
func (d Dmstatus) AllHalted() bool { return getBit(uint32(d), 9) }

// AllRunning reports dmstatus.allrunning.
func (d Dmstatus) AllRunning() bool { return getBit(uint32(d), 11) }

// AllResumeAck reports dmstatus.allresumeack.
func (d Dmstatus) AllResumeAck() bool { return getBit(uint32(d), 17) }

// Dmcontrol is the dmcontrol register (0x10), read/write.
type Dmcontrol uint32

// DmActive reports dmcontrol.dmactive.
func (d Dmcontrol) DmActive() bool { return getBit(uint32(d), 0) }

// SetDmActive sets dmcontrol.dmactive.
func (d *Dmcontrol) SetDmActive(on bool) { *d = Dmcontrol(setBit(uint32(*d), 0, on)) }

// HaltReq reports dmcontrol.haltreq.
func (d Dmcontrol) HaltReq() bool { return getBit(uint32(d), 31) }

// SetHaltReq sets dmcontrol.haltreq.
func (d *Dmcontrol) SetHaltReq(on bool) { *d = Dmcontrol(setBit(uint32(*d), 31, on)) }

// ResumeReq reports dmcontrol.resumereq.
func (d Dmcontrol) ResumeReq() bool { return getBit(uint32(d), 30) }

// SetResumeReq sets dmcontrol.resumereq.
func (d *Dmcontrol) SetResumeReq(on bool) { *d = Dmcontrol(setBit(uint32(*d), 30, on)) }

// AckHaveReset reports dmcontrol.ackhavereset.
func (d Dmcontrol) AckHaveReset() bool { return getBit(uint32(d), 28) }

// SetAckHaveReset sets dmcontrol.ackhavereset.
func (d *Dmcontrol) SetAckHaveReset(on bool) { *d = Dmcontrol(setBit(uint32(*d), 28, on)) }

// HartSel returns the combined hartsello[15:6]+hartselhi[25:16] hart
// selector, up to 20 bits wide.
func (d Dmcontrol) HartSel() uint32 {
	hi := getBits(uint32(d), 25, 16)
	lo := getBits(uint32(d), 15, 6)
	return hi<<10 | lo
}

// SetHartSel sets the combined hart selector field.
func (d *Dmcontrol) SetHartSel(hartsel uint32) {
	v := uint32(*d)
	v = setBits(v, 25, 16, hartsel>>10)
	v = setBits(v, 15, 6, hartsel)
	*d = Dmcontrol(v)
}

// HartInfo is the hartinfo register (0x12), read-only.
type HartInfo uint32

// Nscratch returns hartinfo.nscratch[23:20], the number of dscratch CSRs
// available for debugger use.
func (h HartInfo) Nscratch() uint8 { return uint8(getBits(uint32(h), 23, 20)) }

// AbstractCS is the abstractcs register (0x16).
type AbstractCS uint32

// ProgbufSize returns abstractcs.progbufsize[28:24].
func (a AbstractCS) ProgbufSize() uint8 { return uint8(getBits(uint32(a), 28, 24)) }

// Busy reports abstractcs.busy.
func (a AbstractCS) Busy() bool { return getBit(uint32(a), 12) }

// CmdErr returns abstractcs.cmderr[10:8].
func (a AbstractCS) CmdErr() riscv.AbstractCommandErrorKind {
	return riscv.ParseAbstractCommandErrorKind(uint8(getBits(uint32(a), 10, 8)))
}

// DataCount returns abstractcs.datacount[3:0].
func (a AbstractCS) DataCount() uint8 { return uint8(getBits(uint32(a), 3, 0)) }

// clearCmdErr is abstractcs with cmderr W1C'd (written with 0x7 to clear any
// latched error) and everything else zeroed, ready to write back.
func clearCmdErr() AbstractCS {
	return AbstractCS(setBits(0, 10, 8, 0x7))
}

// AccessRegisterCommand is the command register (0x17) in its Access
// Register Command form (cmdtype 0).
type AccessRegisterCommand uint32

// SetAarSize sets command.aarsize[22:20].
func (c *AccessRegisterCommand) SetAarSize(w riscv.BusAccess) {
	*c = AccessRegisterCommand(setBits(uint32(*c), 22, 20, uint32(w)))
}

// SetPostexec sets command.postexec[18].
func (c *AccessRegisterCommand) SetPostexec(on bool) {
	*c = AccessRegisterCommand(setBit(uint32(*c), 18, on))
}

// SetTransfer sets command.transfer[17].
func (c *AccessRegisterCommand) SetTransfer(on bool) {
	*c = AccessRegisterCommand(setBit(uint32(*c), 17, on))
}

// SetWrite sets command.write[16].
func (c *AccessRegisterCommand) SetWrite(on bool) {
	*c = AccessRegisterCommand(setBit(uint32(*c), 16, on))
}

// SetRegno sets command.regno[15:0].
func (c *AccessRegisterCommand) SetRegno(regno riscv.RegisterID) {
	*c = AccessRegisterCommand(setBits(uint32(*c), 15, 0, uint32(regno)))
}

// Abstractauto is the abstractauto register (0x18).
type Abstractauto uint32

// SetAutoexecProgbuf sets abstractauto.autoexecprogbuf[31:16].
func (a *Abstractauto) SetAutoexecProgbuf(mask uint32) {
	*a = Abstractauto(setBits(uint32(*a), 31, 16, mask))
}

// SetAutoexecData sets abstractauto.autoexecdata[11:0].
func (a *Abstractauto) SetAutoexecData(mask uint32) {
	*a = Abstractauto(setBits(uint32(*a), 11, 0, mask))
}

// Sbcs is the sbcs register (0x38).
type Sbcs uint32

// SbVersion returns sbcs.sbversion[31:29].
func (s Sbcs) SbVersion() uint8 { return uint8(getBits(uint32(s), 31, 29)) }

// SbError returns sbcs.sberror[14:12].
func (s Sbcs) SbError() uint8 { return uint8(getBits(uint32(s), 14, 12)) }

// SetSbAccess sets sbcs.sbaccess[19:17].
func (s *Sbcs) SetSbAccess(w riscv.BusAccess) {
	*s = Sbcs(setBits(uint32(*s), 19, 17, uint32(w)))
}

// SetSbAutoincrement sets sbcs.sbautoincrement[16].
func (s *Sbcs) SetSbAutoincrement(on bool) {
	*s = Sbcs(setBit(uint32(*s), 16, on))
}

// SetSbReadOnAddr sets sbcs.sbreadonaddr[20].
func (s *Sbcs) SetSbReadOnAddr(on bool) {
	*s = Sbcs(setBit(uint32(*s), 20, on))
}

// SetSbReadOnData sets sbcs.sbreadondata[15].
func (s *Sbcs) SetSbReadOnData(on bool) {
	*s = Sbcs(setBit(uint32(*s), 15, on))
}

// SbAccess8 reports sbcs.sbaccess8[0].
func (s Sbcs) SbAccess8() bool { return getBit(uint32(s), 0) }

// SbAccess16 reports sbcs.sbaccess16[1].
func (s Sbcs) SbAccess16() bool { return getBit(uint32(s), 1) }

// SbAccess32 reports sbcs.sbaccess32[2].
func (s Sbcs) SbAccess32() bool { return getBit(uint32(s), 2) }

// SbAccess64 reports sbcs.sbaccess64[3].
func (s Sbcs) SbAccess64() bool { return getBit(uint32(s), 3) }

// SbAccess128 reports sbcs.sbaccess128[4].
func (s Sbcs) SbAccess128() bool { return getBit(uint32(s), 4) }

// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// accessMethod is how the engine reaches a given bus-access width.
type accessMethod int

const (
	// methodProgramBuffer is the default for any width not proven to be
	// backed by the system bus.
	methodProgramBuffer accessMethod = iota
	methodSystemBus
	methodAbstractCommand
)

// capBits is a 2-bit per-register capability mask: whether an abstract
// command read and/or write of a given register id is known to work.
type capBits uint8

const (
	capRead  capBits = 1 << 0
	capWrite capBits = 1 << 1
	capBoth          = capRead | capWrite
)

// interfaceState is the capability cache discovered once on attach and
// refined (monotonically narrowed, never widened) over the life of the
// session.
type interfaceState struct {
	debugVersion riscv.DebugModuleVersion
	impEBreak    bool

	progbufSize  uint8
	progbufCache [progbufSizeMax]uint32
	progbufValid int // number of leading words in progbufCache considered live

	dataRegisterCount uint8
	nscratch          uint8
	supportsAutoexec  bool

	// confstrptr is the 128-bit configuration string pointer, aggregated
	// from confstrptr0..3, represented as four little-endian 32-bit limbs
	// (confstrptr[0] is the low word). confstrptrSet reports whether dmstatus
	// reported confstrptrvalid at attach time.
	confstrptr    [4]uint32
	confstrptrSet bool

	hartsellen uint8
	numHarts   uint32

	accessMethod map[riscv.BusAccess]accessMethod
	// abstractCmdSupport maps a register id to its known capability mask.
	// A missing entry means "assume both read and write are supported".
	abstractCmdSupport map[riscv.RegisterID]capBits
}

func newInterfaceState() *interfaceState {
	return &interfaceState{
		accessMethod:        make(map[riscv.BusAccess]accessMethod),
		abstractCmdSupport:  make(map[riscv.RegisterID]capBits),
		dataRegisterCount:   1,
		numHarts:            1,
	}
}

// methodFor returns the configured access method for width w, defaulting to
// program buffer per the documented default.
func (s *interfaceState) methodFor(w riscv.BusAccess) accessMethod {
	if m, ok := s.accessMethod[w]; ok {
		return m
	}
	return methodProgramBuffer
}

// canRead reports whether an abstract-command read of register id is still
// believed to be supported.
func (s *interfaceState) canRead(id riscv.RegisterID) bool {
	bits, ok := s.abstractCmdSupport[id]
	if !ok {
		return true
	}
	return bits&capRead != 0
}

// canWrite reports whether an abstract-command write of register id is
// still believed to be supported.
func (s *interfaceState) canWrite(id riscv.RegisterID) bool {
	bits, ok := s.abstractCmdSupport[id]
	if !ok {
		return true
	}
	return bits&capWrite != 0
}

// clearRead narrows the capability mask for id, recording that reads are no
// longer believed supported. The mask only ever narrows within a session.
func (s *interfaceState) clearRead(id riscv.RegisterID) {
	bits, ok := s.abstractCmdSupport[id]
	if !ok {
		bits = capBoth
	}
	s.abstractCmdSupport[id] = bits &^ capRead
}

// clearWrite narrows the capability mask for id, recording that writes are
// no longer believed supported.
func (s *interfaceState) clearWrite(id riscv.RegisterID) {
	bits, ok := s.abstractCmdSupport[id]
	if !ok {
		bits = capBoth
	}
	s.abstractCmdSupport[id] = bits &^ capWrite
}

// cacheMatches reports whether data matches the live prefix of the progbuf
// cache, meaning setup_program_buffer can skip re-uploading it.
func (s *interfaceState) cacheMatches(data []uint32) bool {
	if len(data) > s.progbufValid {
		return false
	}
	for i, v := range data {
		if s.progbufCache[i] != v {
			return false
		}
	}
	return true
}

// updateCache records that data is now the live contents of the program
// buffer. It deliberately does not record the trailing ebreak appended by
// the caller, per the documented cache invariant.
func (s *interfaceState) updateCache(data []uint32) {
	copy(s.progbufCache[:], data)
	s.progbufValid = len(data)
}

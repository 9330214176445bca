// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// RV32I opcode fields, composed the same way bassosimone-risc32's
// pkg/asm/instruction.go builds instruction words: one function per
// instruction shape, each a plain shift-and-mask over a uint32.
const (
	opLoad   = 0x03
	opStore  = 0x23
	opImm    = 0x13
	opSystem = 0x73
)

const (
	funct3LB = 0x0
	funct3LH = 0x1
	funct3LW = 0x2

	funct3SB = 0x0
	funct3SH = 0x1
	funct3SW = 0x2

	funct3ADDI = 0x0

	funct3CSRRW = 0x1
	funct3CSRRS = 0x2
)

// ebreak is the fixed EBREAK encoding.
const ebreak uint32 = 0x00100073

// iType composes an I-type instruction: imm[11:0] | rs1 | funct3 | rd | opcode.
func iType(opcode, funct3, rd, rs1 uint32, imm12 int32) uint32 {
	imm := uint32(imm12) & 0xfff
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | imm<<20
}

// sType composes an S-type instruction, splitting the immediate across
// imm[11:5] and imm[4:0].
func sType(opcode, funct3, rs1, rs2 uint32, imm12 int32) uint32 {
	imm := uint32(imm12) & 0xfff
	lo := imm & 0x1f
	hi := (imm >> 5) & 0x7f
	return opcode | lo<<7 | funct3<<12 | rs1<<15 | rs2<<20 | hi<<25
}

// loadFunct3 returns the funct3 encoding for a load of width w. Only 8/16/32
// bit widths have a load encoding; wider accesses are composed by the
// multi-word engines from several 32-bit loads.
func loadFunct3(w riscv.BusAccess) uint32 {
	switch w {
	case riscv.A8:
		return funct3LB
	case riscv.A16:
		return funct3LH
	default:
		return funct3LW
	}
}

func storeFunct3(w riscv.BusAccess) uint32 {
	switch w {
	case riscv.A8:
		return funct3SB
	case riscv.A16:
		return funct3SH
	default:
		return funct3SW
	}
}

// asmLoad emits lb/lh/lw: rd = width[rs1 + offset].
func asmLoad(rd, rs1 uint32, offset int32, w riscv.BusAccess) uint32 {
	return iType(opLoad, loadFunct3(w), rd, rs1, offset)
}

// asmStore emits sb/sh/sw: width[rs1 + offset] = rs2.
func asmStore(rs1, rs2 uint32, offset int32, w riscv.BusAccess) uint32 {
	return sType(opStore, storeFunct3(w), rs1, rs2, offset)
}

// asmAddi emits addi rd, rs1, imm12.
func asmAddi(rd, rs1 uint32, imm12 int32) uint32 {
	return iType(opImm, funct3ADDI, rd, rs1, imm12)
}

// asmCsrr emits csrr rd, csr — an alias for csrrs rd, csr, x0: with rs1=x0
// the CSR is read into rd and left unmodified. CSR instructions share the
// I-type layout, with the CSR address in the immediate field.
func asmCsrr(rd uint32, csr uint32) uint32 {
	return iType(opSystem, funct3CSRRS, rd, 0, int32(csr))
}

// asmCsrw emits csrw csr, rs — an alias for csrrw x0, csr, rs: with rd=x0
// the old CSR value is discarded and rs is written in.
func asmCsrw(csr uint32, rs uint32) uint32 {
	return iType(opSystem, funct3CSRRW, 0, rs, int32(csr))
}

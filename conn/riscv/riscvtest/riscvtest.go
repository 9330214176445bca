// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package riscvtest is meant to be used to test a Debug Module communication
// engine over a fake Dtm, the same way conn/i2c/i2ctest lets periph drivers
// be tested over a fake I²C bus.
package riscvtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/riscvdebug/conn/riscv"
)

// Op is one expected DMI transaction: the address/data/operation the System
// Under Test must issue, and the 32-bit result the fake hands back for it.
type Op struct {
	Address uint32
	Data    uint32
	DmiOp   riscv.DmiOp
	Result  uint32
}

func (o Op) String() string {
	return fmt.Sprintf("%s(addr=%#04x, data=%#08x) -> %#08x", o.DmiOp, o.Address, o.Data, o.Result)
}

// Playback implements riscv.Dtm and plays back a recorded sequence of DMI
// transactions, asserting that the System Under Test issues exactly the
// expected sequence, in order, whether through DMIAccess or through
// ScheduleDMIAccess/Execute.
//
// While "replay" style unit tests are of limited value, they give an easy
// way to pin down both the resulting values and the exact DMI traffic a
// given operation issues — which is the point, for a protocol this finicky
// about ordering.
type Playback struct {
	sync.Mutex
	Ops []Op

	pending []uint32

	// ResetErr, if non-nil, is returned by every call to Reset.
	ResetErr error
	// ResetCalls counts calls to Reset.
	ResetCalls int
	// IDCode is returned by ReadIDCode.
	IDCode uint32
	// TargetResetDeassertCalls counts calls to TargetResetDeassert.
	TargetResetDeassertCalls int
}

// Close returns an error if not all expected operations were consumed.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) != 0 {
		return fmt.Errorf("riscvtest: expected playback to be empty:\n%#v", p.Ops)
	}
	return nil
}

func (p *Playback) match(address, data uint32, op riscv.DmiOp) (Op, error) {
	if len(p.Ops) == 0 {
		return Op{}, fmt.Errorf("riscvtest: unexpected %s(addr=%#04x, data=%#08x)", op, address, data)
	}
	want := p.Ops[0]
	if want.Address != address || want.Data != data || want.DmiOp != op {
		return Op{}, fmt.Errorf("riscvtest: unexpected transaction %s(addr=%#04x, data=%#08x) != want %s", op, address, data, want)
	}
	p.Ops = p.Ops[1:]
	return want, nil
}

// DMIAccess implements riscv.Dtm.
func (p *Playback) DMIAccess(address, data uint32, op riscv.DmiOp, timeout time.Duration) (uint32, error) {
	p.Lock()
	defer p.Unlock()
	got, err := p.match(address, data, op)
	if err != nil {
		return 0, err
	}
	return got.Result, nil
}

// ScheduleDMIAccess implements riscv.Dtm.
func (p *Playback) ScheduleDMIAccess(address, data uint32, op riscv.DmiOp) (riscv.DeferredResultIndex, error) {
	p.Lock()
	defer p.Unlock()
	got, err := p.match(address, data, op)
	if err != nil {
		return 0, err
	}
	idx := riscv.DeferredResultIndex(len(p.pending))
	p.pending = append(p.pending, got.Result)
	return idx, nil
}

// Execute implements riscv.Dtm.
func (p *Playback) Execute() ([]riscv.CommandResult, error) {
	p.Lock()
	defer p.Unlock()
	out := make([]riscv.CommandResult, len(p.pending))
	for i, v := range p.pending {
		out[i] = riscv.CommandResult(v)
	}
	p.pending = nil
	return out, nil
}

// Reset implements riscv.Dtm.
func (p *Playback) Reset() error {
	p.Lock()
	defer p.Unlock()
	p.ResetCalls++
	return p.ResetErr
}

// ReadIDCode implements riscv.Dtm.
func (p *Playback) ReadIDCode() (uint32, error) {
	p.Lock()
	defer p.Unlock()
	return p.IDCode, nil
}

// TargetResetDeassert implements riscv.Dtm.
func (p *Playback) TargetResetDeassert() error {
	p.Lock()
	defer p.Unlock()
	p.TargetResetDeassertCalls++
	return nil
}

var _ riscv.Dtm = &Playback{}

// Func adapts plain functions into a riscv.Dtm, the same way http.HandlerFunc
// adapts a function into an http.Handler. It is useful for the handful of
// tests — timeout handling, busy-poll behavior — that need a response driven
// by logic rather than a fixed script, where Playback's exact-sequence
// matching would be more cumbersome than helpful.
type Func struct {
	DMIAccessFunc           func(address, data uint32, op riscv.DmiOp, timeout time.Duration) (uint32, error)
	ScheduleDMIAccessFunc   func(address, data uint32, op riscv.DmiOp) (riscv.DeferredResultIndex, error)
	ExecuteFunc             func() ([]riscv.CommandResult, error)
	ResetFunc               func() error
	ReadIDCodeFunc          func() (uint32, error)
	TargetResetDeassertFunc func() error
}

// DMIAccess implements riscv.Dtm.
func (f *Func) DMIAccess(address, data uint32, op riscv.DmiOp, timeout time.Duration) (uint32, error) {
	if f.DMIAccessFunc == nil {
		return 0, errors.New("riscvtest: DMIAccessFunc not set")
	}
	return f.DMIAccessFunc(address, data, op, timeout)
}

// ScheduleDMIAccess implements riscv.Dtm.
func (f *Func) ScheduleDMIAccess(address, data uint32, op riscv.DmiOp) (riscv.DeferredResultIndex, error) {
	if f.ScheduleDMIAccessFunc == nil {
		return 0, errors.New("riscvtest: ScheduleDMIAccessFunc not set")
	}
	return f.ScheduleDMIAccessFunc(address, data, op)
}

// Execute implements riscv.Dtm.
func (f *Func) Execute() ([]riscv.CommandResult, error) {
	if f.ExecuteFunc == nil {
		return nil, errors.New("riscvtest: ExecuteFunc not set")
	}
	return f.ExecuteFunc()
}

// Reset implements riscv.Dtm.
func (f *Func) Reset() error {
	if f.ResetFunc == nil {
		return nil
	}
	return f.ResetFunc()
}

// ReadIDCode implements riscv.Dtm.
func (f *Func) ReadIDCode() (uint32, error) {
	if f.ReadIDCodeFunc == nil {
		return 0, errors.New("riscvtest: ReadIDCodeFunc not set")
	}
	return f.ReadIDCodeFunc()
}

// TargetResetDeassert implements riscv.Dtm.
func (f *Func) TargetResetDeassert() error {
	if f.TargetResetDeassertFunc == nil {
		return nil
	}
	return f.TargetResetDeassertFunc()
}

var _ riscv.Dtm = &Func{}

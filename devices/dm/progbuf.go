// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm

import "periph.io/x/riscvdebug/conn/riscv"

// setupProgramBuffer uploads data as the program buffer contents, appending
// a trailing ebreak unless the target's implicit-ebreak behavior already
// supplies one and the program fills the buffer. It skips the upload
// entirely when data already matches the live prefix of the cache.
func (d *Interface) setupProgramBuffer(data []uint32) error {
	required := len(data)
	if !d.state.impEBreak {
		required++
	}
	if required > int(d.state.progbufSize) {
		return riscv.ErrProgramBufferTooSmall
	}

	if d.state.cacheMatches(data) {
		return nil
	}

	for i, word := range data {
		if err := d.writeRegister(progbufAddress(i), word); err != nil {
			return err
		}
	}
	if !d.state.impEBreak || len(data) < int(d.state.progbufSize) {
		if err := d.writeRegister(progbufAddress(len(data)), ebreak); err != nil {
			return err
		}
	}

	d.state.updateCache(data)
	return nil
}

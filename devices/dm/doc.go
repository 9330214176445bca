// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dm drives a RISC-V Debug Module (per the External Debug Support
// Specification v0.13.2) over a conn/riscv.Dtm: capability discovery, core
// register and CSR access, program-buffer code synthesis, abstract-command
// execution, and memory transfer via system bus, program buffer or (not
// implemented) abstract command.
//
// It plays the role a chip driver plays in periph.io/x/periph/devices: the
// contract (conn/riscv) is defined elsewhere, and this package is the "Dev"
// that speaks it, analogous to devices/ds248x speaking conn/onewire over an
// i2c.Bus.
package dm

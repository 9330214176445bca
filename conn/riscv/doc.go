// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package riscv defines the contract between a RISC-V Debug Module
// communication engine and the Debug Transport Module (DTM) that carries its
// traffic to silicon.
//
// It plays the same role conn/i2c and conn/mmr play for an I²C-attached
// device: it defines the interface the device package (devices/dm) consumes,
// the wire-level vocabulary (DMI operations, register IDs, bus-access
// widths), and the error taxonomy. The DTM itself — JTAG IR/DR shifting, scan
// chain timing, probe enumeration — is out of scope; it is supplied by the
// caller, the same way periph expects a caller to supply an i2c.Bus opened
// through i2creg.
package riscv

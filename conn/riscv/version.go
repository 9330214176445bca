// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import "fmt"

// DebugModuleVersion is the value of dmstatus.version, identifying which
// revision of the RISC-V External Debug Support Specification the target's
// Debug Module implements.
type DebugModuleVersion struct {
	kind  debugModuleVersionKind
	other uint8
}

type debugModuleVersionKind uint8

const (
	dmVersionNone debugModuleVersionKind = iota
	dmVersion011
	dmVersion013
	dmVersionNonConforming
	dmVersionUnknown
)

// DebugModuleVersionNone indicates no debug module is present.
var DebugModuleVersionNone = DebugModuleVersion{kind: dmVersionNone}

// DebugModuleVersion011 indicates conformance to v0.11 of the spec.
var DebugModuleVersion011 = DebugModuleVersion{kind: dmVersion011}

// DebugModuleVersion013 indicates conformance to v0.13 of the spec — the
// only version this module supports driving.
var DebugModuleVersion013 = DebugModuleVersion{kind: dmVersion013}

// DebugModuleVersionNonConforming indicates a debug module that is present
// but conforms to no released version of the spec.
var DebugModuleVersionNonConforming = DebugModuleVersion{kind: dmVersionNonConforming}

// DebugModuleVersionUnknown wraps a dmstatus.version value this module does
// not recognize.
func DebugModuleVersionUnknown(raw uint8) DebugModuleVersion {
	return DebugModuleVersion{kind: dmVersionUnknown, other: raw}
}

// ParseDebugModuleVersion decodes the 4-bit dmstatus.version field.
func ParseDebugModuleVersion(raw uint8) DebugModuleVersion {
	switch raw {
	case 0:
		return DebugModuleVersionNone
	case 1:
		return DebugModuleVersion011
	case 2:
		return DebugModuleVersion013
	case 15:
		return DebugModuleVersionNonConforming
	default:
		return DebugModuleVersionUnknown(raw)
	}
}

// IsV013 reports whether this is exactly version 0.13.
func (v DebugModuleVersion) IsV013() bool {
	return v.kind == dmVersion013
}

func (v DebugModuleVersion) String() string {
	switch v.kind {
	case dmVersionNone:
		return "none"
	case dmVersion011:
		return "v0.11"
	case dmVersion013:
		return "v0.13"
	case dmVersionNonConforming:
		return "non-conforming"
	default:
		return fmt.Sprintf("unknown(%d)", v.other)
	}
}

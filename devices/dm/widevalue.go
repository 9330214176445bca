// Copyright 2024 The RISC-V Debug Module Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dm


// wideSlotCount returns how many 32-bit DM slots a value of the given byte
// width occupies. 8/16/32-bit values fit in slot 0 alone.
func wideSlotCount(byteWidth int) int {
	switch {
	case byteWidth <= 4:
		return 1
	case byteWidth <= 8:
		return 2
	default:
		return 4
	}
}

// splitWide decomposes a 128-bit-capped value into up to 4 little-endian
// 32-bit slots, zero-extending narrower widths into slot 0 alone.
func splitWide(lo, hi uint64, byteWidth int) []uint32 {
	slots := wideSlotCount(byteWidth)
	out := make([]uint32, slots)
	switch slots {
	case 1:
		out[0] = uint32(lo)
	case 2:
		out[0] = uint32(lo)
		out[1] = uint32(lo >> 32)
	case 4:
		out[0] = uint32(lo)
		out[1] = uint32(lo >> 32)
		out[2] = uint32(hi)
		out[3] = uint32(hi >> 32)
	}
	return out
}

// joinWide reassembles up to 4 little-endian 32-bit slots into a 128-bit
// value split as (lo, hi) 64-bit halves.
func joinWide(slots []uint32) (lo, hi uint64) {
	switch len(slots) {
	case 1:
		lo = uint64(slots[0])
	case 2:
		lo = uint64(slots[0]) | uint64(slots[1])<<32
	case 4:
		lo = uint64(slots[0]) | uint64(slots[1])<<32
		hi = uint64(slots[2]) | uint64(slots[3])<<32
	}
	return lo, hi
}

// slotAddresses returns the DM register addresses backing a wide register
// built from base (slot 0's address), in ascending slot order.
func slotAddresses(base func(i int) uint8, slots int) []uint8 {
	addrs := make([]uint8, slots)
	for i := 0; i < slots; i++ {
		addrs[i] = base(i)
	}
	return addrs
}

// readWideSlots reads a wide register's slots in the order the side-effect
// semantics of slot 0 require: highest slot first, slot 0 last.
func (d *Interface) readWideSlots(addrs []uint8) ([]uint32, error) {
	out := make([]uint32, len(addrs))
	for i := len(addrs) - 1; i >= 0; i-- {
		v, err := d.readRegister(addrs[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// writeWideSlots writes a wide register's slots highest-first, slot 0 last,
// since slot 0 is the side-effecting one that arms the transfer.
func (d *Interface) writeWideSlots(addrs []uint8, values []uint32) error {
	for i := len(addrs) - 1; i >= 0; i-- {
		if err := d.writeRegister(addrs[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

// confstrptr returns the aggregated 128-bit configuration string pointer
// discovered at attach, as (lo, hi) 64-bit halves, and whether the target
// reported one at all (dmstatus.confstrptrvalid).
//
// The four confstrptr0..3 limbs are combined with shifts 0, 32, 64, 96 —
// the corrected pattern, not the 0, 8, 16, 32 shifts literally present in
// the source this was distilled from (see DESIGN.md).
func (d *Interface) confstrptr() (lo, hi uint64, valid bool) {
	if !d.state.confstrptrSet {
		return 0, 0, false
	}
	lo, hi = joinWide(d.state.confstrptr[:])
	return lo, hi, true
}

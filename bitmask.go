package kura

// bitset256 is a fixed-width bitset. The type registry uses it as a bloom
// filter over type identities, and tables keep the union of the bits of
// their column types to reject queries without scanning their signature.
type bitset256 [4]uint64

// set enables the given bit.
func (m *bitset256) set(bit uint8) {
	i := bit >> 6 // (bit / 64) to find the uint64 index
	o := bit & 63 // (bit % 64) to find the bit offset
	m[i] |= uint64(1) << uint64(o)
}

// contains checks if all the bits set in sub are also set in m.
func (m bitset256) contains(sub bitset256) bool {
	return (m[0]&sub[0]) == sub[0] &&
		(m[1]&sub[1]) == sub[1] &&
		(m[2]&sub[2]) == sub[2] &&
		(m[3]&sub[3]) == sub[3]
}

// or returns the union of m and o.
func (m bitset256) or(o bitset256) bitset256 {
	return bitset256{m[0] | o[0], m[1] | o[1], m[2] | o[2], m[3] | o[3]}
}

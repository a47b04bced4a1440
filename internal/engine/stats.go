package engine

// MergeStats returns current with delta added. Attributes missing from delta
// keep their value, and no attribute drops below floor.
func MergeStats(current map[string]int, delta StatDelta, floor int) map[string]int {
	out := make(map[string]int, len(current)+len(delta))
	for k, v := range current {
		out[k] = v
	}
	for attr, d := range delta {
		v := out[string(attr)] + d
		if v < floor {
			v = floor
		}
		out[string(attr)] = v
	}
	return out
}

// StatDiff is what actually changed between two attribute maps. Attributes
// whose value did not move are left out.
func StatDiff(before, after map[string]int) StatDelta {
	out := StatDelta{}
	for _, a := range Attributes {
		if d := after[string(a)] - before[string(a)]; d != 0 {
			out[a] = d
		}
	}
	return out
}

// IsEmpty reports whether applying d would change nothing.
func (d StatDelta) IsEmpty() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

func (d StatDelta) validate() error {
	for attr := range d {
		if !attr.IsValid() {
			return invalidInput("unknown attribute %q", attr)
		}
	}
	return nil
}

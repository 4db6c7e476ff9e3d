package pipeline

import "github.com/glium/glium/resource"

// UnitAllocator assigns texture units to the textures a draw needs.
//
// When a texture is not already bound anywhere, the allocator prefers
// evicting a unit whose current binding is not needed by this draw,
// falling back to round-robin. The round-robin cursor persists across
// draws so eviction churn spreads over the unit table instead of
// always thrashing unit 0.
type UnitAllocator struct {
	cursor int
}

// Assign returns, for each required texture, the unit it should occupy.
// current is the unit table as the cache knows it. Duplicate textures
// in required share a unit. Returns ok=false if required needs more
// units than exist; the validator rejects such draws before emission,
// so this is a defense the emitter treats as a programming error.
func (a *UnitAllocator) Assign(current []resource.Handle, required []resource.Handle) (units []int, ok bool) {
	if len(current) == 0 {
		return nil, len(required) == 0
	}

	needed := make(map[resource.Handle]bool, len(required))
	for _, tex := range required {
		needed[tex] = true
	}
	if len(needed) > len(current) {
		return nil, false
	}

	assigned := make(map[resource.Handle]int, len(required))
	taken := make([]bool, len(current))

	// First pass: keep textures where they already are.
	for unit, bound := range current {
		if bound.IsValid() && needed[bound] {
			if _, dup := assigned[bound]; !dup {
				assigned[bound] = unit
				taken[unit] = true
			}
		}
	}

	// Second pass: place the rest, preferring units whose binding this
	// draw does not need.
	for _, tex := range required {
		if _, done := assigned[tex]; done {
			continue
		}
		unit := -1
		for u, bound := range current {
			if !taken[u] && !needed[bound] {
				unit = u
				break
			}
		}
		if unit < 0 {
			// Round-robin over whatever is free.
			for range current {
				u := a.cursor % len(current)
				a.cursor++
				if !taken[u] {
					unit = u
					break
				}
			}
		}
		if unit < 0 {
			return nil, false
		}
		assigned[tex] = unit
		taken[unit] = true
	}

	units = make([]int, len(required))
	for i, tex := range required {
		units[i] = assigned[tex]
	}
	return units, true
}

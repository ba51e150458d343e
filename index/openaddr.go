package index

// insertOpenAddressing probes until either an empty slot is found (insert a
// new entry) or the existing key is matched (overwrite its location). If N
// probes all fail, the table is considered full and we panic — there is no
// automatic resizing.
func (idx *Index) insertOpenAddressing(key string, location FileLocation) {
	home := hashKey(key) % idx.size

	for attempt := uint64(0); attempt < idx.size; attempt++ {
		slot := idx.probeIndex(home, attempt, key)

		if idx.buckets[slot] == nil {
			idx.buckets[slot] = &entry{key: key, location: location}
			return
		}
		if idx.buckets[slot].key == key {
			idx.buckets[slot].location = location
			return
		}
	}

	panic(ErrFull)
}

// getOpenAddressing probes until an empty slot (miss), the key (hit), or N
// probes are exhausted (miss).
func (idx *Index) getOpenAddressing(key string) (FileLocation, bool) {
	home := hashKey(key) % idx.size

	for attempt := uint64(0); attempt < idx.size; attempt++ {
		slot := idx.probeIndex(home, attempt, key)

		e := idx.buckets[slot]
		if e == nil {
			return FileLocation{}, false
		}
		if e.key == key {
			return e.location, true
		}
	}

	return FileLocation{}, false
}

// deleteOpenAddressing probes for key; on a hit it nulls the slot and
// repairs the probe sequence so later lookups for other keys in the same
// cluster still terminate correctly.
func (idx *Index) deleteOpenAddressing(key string) bool {
	home := hashKey(key) % idx.size

	for attempt := uint64(0); attempt < idx.size; attempt++ {
		slot := idx.probeIndex(home, attempt, key)

		e := idx.buckets[slot]
		if e == nil {
			return false
		}
		if e.key == key {
			idx.buckets[slot] = nil
			idx.repairAfterDelete(slot)
			return true
		}
	}

	return false
}

// repairAfterDelete restores probe-sequence correctness after slot has been
// cleared. Linear probing repairs only the affected cluster; quadratic
// probing and double hashing fall back to a wholesale rehash because their
// non-linear step sizes make cluster-local repair unsound.
func (idx *Index) repairAfterDelete(deletedSlot uint64) {
	if idx.strategy == Linear {
		idx.repairLinearCluster(deletedSlot)
		return
	}
	idx.rehashAll()
}

// repairLinearCluster walks forward from deletedSlot+1 until an empty slot
// terminates the cluster. Each occupied slot along the way is evaluated
// against its home slot to decide whether it must move back to fill the
// current gap — including the wraparound case where the home slot lies after
// the gap because the cluster wrapped past index 0. When an entry moves back,
// the slot it left becomes the gap for the rest of the walk.
func (idx *Index) repairLinearCluster(deletedSlot uint64) {
	slot := (deletedSlot + 1) % idx.size

	for idx.buckets[slot] != nil {
		e := idx.buckets[slot]
		home := hashKey(e.key) % idx.size

		if shouldMove(home, deletedSlot, slot, idx.size) {
			idx.buckets[slot] = nil
			idx.insertOpenAddressing(e.key, e.location)
			if idx.buckets[slot] == nil {
				deletedSlot = slot
			}
		}

		slot = (slot + 1) % idx.size
	}
}

// shouldMove decides, for linear probing, whether the entry currently
// sitting at current (whose probe sequence starts at home) must be reinserted
// to fill the gap left at deleted. The two branches handle a cluster that
// does not wrap past index 0 and one that does.
func shouldMove(home, deleted, current, size uint64) bool {
	if home <= deleted {
		// Cluster does not wrap between home and deleted: the gap is
		// reachable either by continuing past deleted or by wrapping back
		// before home.
		return current > deleted || current < home
	}
	// home > deleted: the cluster wrapped across index 0, so home lies
	// "after" deleted only inside the (deleted, home) window.
	return deleted < current && current < home
}

// rehashAll drains every occupied slot into a temporary buffer, clears the
// table, and reinserts every entry. O(N) per delete, but correct for every
// probe function — the deliberate simplification the spec calls for when
// the step size isn't a constant stride.
func (idx *Index) rehashAll() {
	var saved []entry
	for i := range idx.buckets {
		if idx.buckets[i] != nil {
			saved = append(saved, *idx.buckets[i])
			idx.buckets[i] = nil
		}
	}
	for _, e := range saved {
		idx.insertOpenAddressing(e.key, e.location)
	}
}

package index

// insertChaining appends a new entry to key's bucket, or overwrites the
// matching entry already there.
func (idx *Index) insertChaining(key string, location FileLocation) {
	bucket := hashKey(key) % idx.size
	chain := idx.chains[bucket]

	for i := range chain {
		if chain[i].key == key {
			chain[i].location = location
			return
		}
	}

	idx.chains[bucket] = append(chain, entry{key: key, location: location})
}

// getChaining scans key's bucket linearly.
func (idx *Index) getChaining(key string) (FileLocation, bool) {
	bucket := hashKey(key) % idx.size
	for _, e := range idx.chains[bucket] {
		if e.key == key {
			return e.location, true
		}
	}
	return FileLocation{}, false
}

// deleteChaining removes the matching entry from its bucket, if present.
func (idx *Index) deleteChaining(key string) bool {
	bucket := hashKey(key) % idx.size
	chain := idx.chains[bucket]

	for i := range chain {
		if chain[i].key == key {
			idx.chains[bucket] = append(chain[:i], chain[i+1:]...)
			return true
		}
	}

	return false
}

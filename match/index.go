package match

import "sort"

// Entry is one playable item in the destination library
type Entry struct {
	ID      string
	Title   string
	Artists []string
	Album   string
}

// Index maps normalized keys to library item IDs. It is built once per run and
// read-only afterwards.
type Index struct {
	ids map[string]string

	// keys and keyChars are the sorted key set, pre-split for fuzzy scans
	keys     []string
	keyChars [][]string
}

// BuildIndex indexes every entry under its title key and under artist+title
// for each of its artists. Keys are inserted in entry order, title first, and a
// later entry silently replaces an earlier one that produced the same key.
func BuildIndex(entries []Entry) *Index {
	idx := &Index{ids: make(map[string]string, len(entries)*2)}

	for _, entry := range entries {
		titleKey := Normalize(entry.Title)
		if titleKey != "" {
			idx.ids[titleKey] = entry.ID
		}

		for _, artist := range entry.Artists {
			artistKey := Normalize(artist)
			if artistKey != "" && titleKey != "" {
				idx.ids[artistKey+titleKey] = entry.ID
			}
		}
	}

	idx.keys = make([]string, 0, len(idx.ids))
	for key := range idx.ids {
		idx.keys = append(idx.keys, key)
	}
	sort.Strings(idx.keys)

	idx.keyChars = make([][]string, len(idx.keys))
	for i, key := range idx.keys {
		idx.keyChars[i] = splitChars(key)
	}

	return idx
}

// Lookup returns the item ID stored under an exact key
func (idx *Index) Lookup(key string) (string, bool) {
	id, ok := idx.ids[key]
	return id, ok
}

// Len returns the number of distinct keys
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Keys returns the key set in ascending order. The slice must not be modified.
func (idx *Index) Keys() []string {
	return idx.keys
}

// splitChars splits an ASCII key into single-character elements
func splitChars(key string) []string {
	chars := make([]string, len(key))
	for i := 0; i < len(key); i++ {
		chars[i] = key[i : i+1]
	}
	return chars
}

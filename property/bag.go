package property

// Bag is the ordered sequence of Property used for call arguments and reply
// payloads. Order is observable by the protocol: positional args, positional
// reply props.
type Bag []Property

// Get returns the first property in b whose Info matches info.
func Get(b Bag, info *Info) (Property, bool) {
	for _, p := range b {
		if p.Info() == info {
			return p, true
		}
	}
	return Property{}, false
}

// Update writes p at index, extending b with Empty properties as needed. It
// returns whether b changed: true if index was new, types differ, or values
// differ; false if the existing value at index already equals p.
func Update(b *Bag, index int, p Property) bool {
	grew := len(*b) <= index
	for len(*b) <= index {
		*b = append(*b, NewEmpty())
	}
	existing := (*b)[index]
	if !grew && existing.Type() == p.Type() && existing.Equal(p) {
		return false
	}
	(*b)[index] = p
	return true
}

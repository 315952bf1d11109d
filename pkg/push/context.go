package push

// Kind tags a creation-context entry with its push phase.
type Kind string

const (
	KindLeaf Kind = "leaf"
	KindRow  Kind = "row"
	KindTop  Kind = "top"
)

// Created is one item this push wrote to the PLM.
type Created struct {
	Kind   Kind
	Number string
	GUID   string
}

// CreationContext records every item the push created, in creation order.
// Rollback walks it in reverse so parents are deleted before the children
// they reference. Found pre-existing items are never recorded; rollback
// must only remove what this push added.
type CreationContext struct {
	entries []Created
}

// Append records a creation.
func (c *CreationContext) Append(kind Kind, number, guid string) {
	c.entries = append(c.entries, Created{Kind: kind, Number: number, GUID: guid})
}

// Entries returns the creations in order.
func (c *CreationContext) Entries() []Created {
	return c.entries
}

// Len returns the number of recorded creations.
func (c *CreationContext) Len() int {
	return len(c.entries)
}

// Reversed returns the creations newest-first for rollback.
func (c *CreationContext) Reversed() []Created {
	out := make([]Created, len(c.entries))
	for i, e := range c.entries {
		out[len(c.entries)-1-i] = e
	}
	return out
}

package bom

// QuantityChange is a line present on both sides with differing quantity.
type QuantityChange struct {
	Remote Line // carries the server line id
	NewQty int
}

// Diff is the symmetric difference between a local and a remote BOM, both
// keyed by child opaque id. Keying on identity rather than item number
// means a rename in the PLM never churns BOM lines.
type Diff struct {
	ToAdd    []Line           // local-only children
	ToUpdate []QuantityChange // both sides, quantity differs
	ToRemove []Line           // remote-only children
}

// Empty reports a no-op diff.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToUpdate) == 0 && len(d.ToRemove) == 0
}

// Compute diffs local against remote. Only quantity differences produce
// updates; all other remote line fields are parent-owned and untouched.
// Input order is preserved within each bucket.
func Compute(local, remote []Line) Diff {
	remoteByChild := make(map[string]Line, len(remote))
	for _, l := range remote {
		remoteByChild[l.ChildGUID] = l
	}
	localByChild := make(map[string]Line, len(local))
	for _, l := range local {
		localByChild[l.ChildGUID] = l
	}

	var d Diff
	for _, r := range remote {
		if _, ok := localByChild[r.ChildGUID]; !ok {
			d.ToRemove = append(d.ToRemove, r)
		}
	}
	for _, l := range local {
		r, ok := remoteByChild[l.ChildGUID]
		if !ok {
			d.ToAdd = append(d.ToAdd, l)
			continue
		}
		if l.Quantity != r.Quantity {
			d.ToUpdate = append(d.ToUpdate, QuantityChange{Remote: r, NewQty: l.Quantity})
		}
	}
	return d
}

// RevisionDrift reports a parent revision change for comparison reports.
// Display-only: smart sync never writes revisions.
func RevisionDrift(localRev, remoteRev string) (string, bool) {
	if localRev == remoteRev || remoteRev == "" {
		return "", false
	}
	return localRev + " -> " + remoteRev, true
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

// headPosition is the sentinel anchor ordinal for "insert at the very
// start of the instance".
const headPosition = -1

// slotKey identifies one logical insertion slot. For a linked show the
// scope is the show, because its instances share anchor positions and a
// batch targeting the same position in two siblings resolves to one
// slot. For an unlinked show the scope is the instance.
type slotKey struct {
	scope    string
	position int
}

// slotGuard deduplicates logically-equivalent insertion targets within
// one engine run so a single user action cannot double-insert across
// linked instances. Duplicates are no-ops, not errors.
type slotGuard struct {
	seen map[slotKey]struct{}
}

func newSlotGuard() *slotGuard {
	return &slotGuard{seen: make(map[slotKey]struct{})}
}

// visit records the slot and reports whether this is its first visit.
func (g *slotGuard) visit(scope string, position int) bool {
	key := slotKey{scope: scope, position: position}
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}
	return true
}

// Package stringpool is the process-scoped interner that gives every
// user-visible string in a diff report a stable 32-bit id. Sheet names,
// query names, formulas, and cell text all flow through one pool so a
// report's "strings" table needs to be resolved only once downstream.
package stringpool

import "github.com/cespare/xxhash/v2"

// ID is a monotonically increasing identifier into a Pool's string table.
// "" is always ID 0.
type ID uint32

type bucket struct {
	ids []ID // usually length 1; longer only on hash collision
}

// Pool is mutated only while a diff is in progress (begin/emit); once a
// report is produced the caller treats its Strings() slice as frozen.
type Pool struct {
	strings []string
	index   map[uint64]*bucket
}

// New returns a Pool with "" already interned as ID 0.
func New() *Pool {
	p := &Pool{index: make(map[uint64]*bucket)}
	p.Intern("")
	return p
}

// Intern returns the stable id for s, inserting it if not already present.
// Collisions on the bucket hash never reassign a previously issued id.
func (p *Pool) Intern(s string) ID {
	h := xxhash.Sum64String(s)
	b, ok := p.index[h]
	if !ok {
		id := ID(len(p.strings))
		p.strings = append(p.strings, s)
		p.index[h] = &bucket{ids: []ID{id}}
		return id
	}
	for _, id := range b.ids {
		if p.strings[id] == s {
			return id
		}
	}
	id := ID(len(p.strings))
	p.strings = append(p.strings, s)
	b.ids = append(b.ids, id)
	return id
}

// Resolve returns the string behind id.
func (p *Pool) Resolve(id ID) string {
	return p.strings[id]
}

// Strings returns the ordered string table, insertion order == id order.
func (p *Pool) Strings() []string {
	out := make([]string, len(p.strings))
	copy(out, p.strings)
	return out
}

// Len returns the number of interned strings.
func (p *Pool) Len() int {
	return len(p.strings)
}

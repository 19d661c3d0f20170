// SPDX-License-Identifier: Apache-2.0

package query

import "strconv"

// PlaceholderID identifies a client placeholder: either the zero-based
// occurrence index of an anonymous placeholder (%s) or the name of a named
// one (%(name)s).
type PlaceholderID struct {
	index int
	name  string
	named bool
}

func IndexPlaceholder(i int) PlaceholderID {
	return PlaceholderID{index: i}
}

func NamePlaceholder(name string) PlaceholderID {
	return PlaceholderID{name: name, named: true}
}

func (p PlaceholderID) IsNamed() bool {
	return p.named
}

func (p PlaceholderID) Index() int {
	return p.index
}

func (p PlaceholderID) Name() string {
	return p.name
}

func (p PlaceholderID) String() string {
	if p.named {
		return p.name
	}
	return strconv.Itoa(p.index)
}

// Part is a chunk of a split query: the literal text preceding a placeholder,
// the placeholder and its format. The last part of a query only carries the
// trailing literal; its Item and Format are meaningless.
type Part struct {
	Pre    []byte
	Item   PlaceholderID
	Format Format
}

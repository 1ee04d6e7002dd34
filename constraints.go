package ctrd

import (
	"github.com/benbjohnson/immutable"
)

// Constraints is an append-only store of boolean facts about the design.
//
// The zero value is not usable; use NewConstraints.
type Constraints struct {
	list *immutable.List
}

// NewConstraints returns an empty constraint store.
func NewConstraints() *Constraints {
	return &Constraints{list: immutable.NewList()}
}

// Add appends expr to the store. Constant true facts are dropped.
func (c *Constraints) Add(expr Expr) {
	assert(ExprWidth(expr) == WidthBool, "constraint must be boolean: %s", expr)
	if IsConstantTrue(expr) {
		return
	}
	c.list = c.list.Append(expr)
}

// Len returns the number of stored constraints.
func (c *Constraints) Len() int { return c.list.Len() }

// Exprs returns the stored constraints in insertion order.
func (c *Constraints) Exprs() []Expr {
	a := make([]Expr, 0, c.list.Len())
	itr := c.list.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		a = append(a, v.(Expr))
	}
	return a
}

// Snapshot returns a copy of the store that is unaffected by later additions.
func (c *Constraints) Snapshot() *Constraints {
	return &Constraints{list: c.list}
}

// Package idgen allocates hierarchical child ids.
//
// A new child of P is numbered one past the largest numeric child of P that
// has a materialized record, starting at 1. Allocation is only safe when the
// caller serializes scan-then-write for P.
package idgen

import (
	"context"
	"fmt"

	"github.com/steveyegge/issueboard/internal/types"
)

// ChildScanner lists the entry names directly under a parent that hold a record.
// Names need not be numeric; non-numeric entries are ignored.
type ChildScanner interface {
	ChildNames(ctx context.Context, parent types.Path) ([]string, error)
}

// ChildScannerFunc adapts a function to ChildScanner.
type ChildScannerFunc func(ctx context.Context, parent types.Path) ([]string, error)

// ChildNames implements ChildScanner.
func (f ChildScannerFunc) ChildNames(ctx context.Context, parent types.Path) ([]string, error) {
	return f(ctx, parent)
}

// NextChildID returns parent's next free child path.
func NextChildID(ctx context.Context, scanner ChildScanner, parent types.Path) (types.Path, error) {
	names, err := scanner.ChildNames(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("scan children of %q: %w", parent.String(), err)
	}
	return parent.Child(MaxChild(names) + 1), nil
}

// MaxChild returns the largest numeric name, or 0 when there is none.
func MaxChild(names []string) int {
	highest := 0
	for _, name := range names {
		if n, ok := types.ParseSegment(name); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// Package diagram defines the contract between the group allocator and the
// decision-diagram package that owns the variable order, and provides Memory,
// an in-process implementation of that contract.
//
// A variable has a stable index assigned at creation and a level, its current
// position in the order. Reordering permutes levels; indices never change.
// Blocks are level ranges the package promises to keep contiguous while it
// reorders.
package diagram

import (
	"errors"
	"fmt"
	"strings"
)

// BlockID identifies a contiguous block registered with a Package.
type BlockID int

// Method selects the reordering algorithm.
type Method int

// Reordering methods.
const (
	// MethodNone leaves the order untouched.
	MethodNone Method = iota
	// MethodReverse reverses the sequence of reorderable units.
	MethodReverse
	// MethodRotate moves the first unit to the bottom of the order.
	MethodRotate
	// MethodShuffle permutes units with the package's seeded generator.
	MethodShuffle
)

var methodNames = map[Method]string{
	MethodNone:    "none",
	MethodReverse: "reverse",
	MethodRotate:  "rotate",
	MethodShuffle: "shuffle",
}

// Sentinel errors returned by Package implementations.
var (
	// ErrIndexExhausted indicates the index space cannot host another variable.
	ErrIndexExhausted = errors.New("diagram: variable index space exhausted")
	// ErrIndexOutOfOrder indicates a variable was requested at a non-consecutive index.
	ErrIndexOutOfOrder = errors.New("diagram: variables must be created at the next free index")
	// ErrBlockRange indicates a block does not fit inside the allocated variables.
	ErrBlockRange = errors.New("diagram: block range out of bounds")
	// ErrBlockOverlap indicates a block overlaps an already registered block.
	ErrBlockOverlap = errors.New("diagram: block overlaps an existing block")
	// ErrUnknownBlock indicates the block id is not registered.
	ErrUnknownBlock = errors.New("diagram: unknown block")
	// ErrBlockSplit indicates a requested order would split a registered block
	// or shuffle the variables inside it.
	ErrBlockSplit = errors.New("diagram: order splits a registered block")
	// ErrBadPermutation indicates a requested order is not a permutation of the variables.
	ErrBadPermutation = errors.New("diagram: order is not a permutation of the variables")
	// ErrUnknownMethod indicates an unrecognised reordering method name.
	ErrUnknownMethod = errors.New("diagram: unknown reordering method")
	// ErrBadSnapshot indicates an order snapshot could not be decoded.
	ErrBadSnapshot = errors.New("diagram: malformed order snapshot")
)

// Package is the subset of a decision-diagram package the group allocator
// depends on.
type Package interface {
	// LevelOfIndex returns the current level of the variable with the given index.
	LevelOfIndex(index int) int
	// IndexOfLevel returns the index of the variable currently at the given level.
	IndexOfLevel(level int) int
	// Size returns the number of allocated variables.
	Size() int
	// MaxIndex returns the exclusive upper bound of the index space.
	MaxIndex() int
	// CreateVarAtIndex extends the variable space with the variable at index.
	CreateVarAtIndex(index int) error
	// ReserveBlock asks the package to keep size variables, starting at the
	// level of startIndex, contiguous across reordering.
	ReserveBlock(startIndex, size int) (BlockID, error)
	// FreeBlock withdraws a block registered by ReserveBlock.
	FreeBlock(id BlockID) error
	// ReorderingStatus reports whether automatic reordering is enabled and with which method.
	ReorderingStatus() (bool, Method)
	// DisableReordering turns automatic reordering off.
	DisableReordering()
	// EnableReordering turns automatic reordering on with the given method.
	EnableReordering(method Method)
}

// String returns the configuration name of the method.
func (m Method) String() string {
	name, ok := methodNames[m]
	if !ok {
		return fmt.Sprintf("method(%d)", int(m))
	}

	return name
}

// ParseMethod maps a configuration name to a Method. Matching is case-insensitive.
func ParseMethod(name string) (Method, error) {
	want := strings.ToLower(strings.TrimSpace(name))

	for method, methodName := range methodNames {
		if methodName == want {
			return method, nil
		}
	}

	return MethodNone, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

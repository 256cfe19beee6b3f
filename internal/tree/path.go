// Package tree encodes materialised paths for the page and collection trees.
//
// A path is a concatenation of fixed-width base-36 steps, one per level, so
// the root is "0001", its first child "00010001" and so on. Ancestors are
// path prefixes and siblings sort by path.
package tree

import (
	"errors"
	"fmt"
	"strings"
)

// StepLen is the width of one path step
const StepLen = 4

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxChildren is the number of children one node can hold
const MaxChildren = 36*36*36*36 - 1

var (
	ErrInvalidPath = errors.New("invalid tree path")
	ErrTreeFull    = errors.New("node has no free child positions")
)

// Step encodes a 1-based sibling position
func Step(n int) (string, error) {
	if n < 1 || n > MaxChildren {
		return "", ErrTreeFull
	}
	buf := make([]byte, StepLen)
	for i := StepLen - 1; i >= 0; i-- {
		buf[i] = alphabet[n%36]
		n /= 36
	}
	return string(buf), nil
}

// DecodeStep returns the sibling position encoded by a step
func DecodeStep(step string) (int, error) {
	if len(step) != StepLen {
		return 0, ErrInvalidPath
	}
	n := 0
	for i := 0; i < StepLen; i++ {
		idx := strings.IndexByte(alphabet, step[i])
		if idx < 0 {
			return 0, ErrInvalidPath
		}
		n = n*36 + idx
	}
	return n, nil
}

// Root is the path of the single depth-1 node
func Root() string {
	s, _ := Step(1)
	return s
}

// Child returns the path of the n-th child of parent
func Child(parent string, n int) (string, error) {
	step, err := Step(n)
	if err != nil {
		return "", err
	}
	return parent + step, nil
}

// NextChild returns the path following lastChild, or the first child
// path of parent when lastChild is empty.
func NextChild(parent, lastChild string) (string, error) {
	if lastChild == "" {
		return Child(parent, 1)
	}
	if !strings.HasPrefix(lastChild, parent) || len(lastChild) != len(parent)+StepLen {
		return "", fmt.Errorf("%w: %q is not a child of %q", ErrInvalidPath, lastChild, parent)
	}
	n, err := DecodeStep(lastChild[len(parent):])
	if err != nil {
		return "", err
	}
	return Child(parent, n+1)
}

// Depth of a path; the root has depth 1
func Depth(path string) int {
	return len(path) / StepLen
}

// Parent path, empty for the root
func Parent(path string) string {
	if len(path) <= StepLen {
		return ""
	}
	return path[:len(path)-StepLen]
}

// Ancestors returns the proper ancestor paths of path, root first
func Ancestors(path string) []string {
	depth := Depth(path)
	out := make([]string, 0, depth)
	for d := 1; d < depth; d++ {
		out = append(out, path[:d*StepLen])
	}
	return out
}

// AncestorsOrSelf is Ancestors with path appended
func AncestorsOrSelf(path string) []string {
	return append(Ancestors(path), path)
}

// ChildPattern is a SQL LIKE pattern matching direct children of parent
func ChildPattern(parent string) string {
	return parent + strings.Repeat("_", StepLen)
}

// DescendantPattern is a SQL LIKE pattern matching all descendants of parent
func DescendantPattern(parent string) string {
	return parent + "%"
}

// Package tree holds a minimal rooted tree with keyed children.
// It is used to represent discriminator hierarchies.
package tree

import "sort"

// Node is a tree node carrying a value and children addressed by key.
// A parent owns its children.
type Node[T any] struct {
	value    T
	children map[string]*Node[T]
}

// New creates a node holding value.
func New[T any](value T) *Node[T] {
	return &Node[T]{
		value:    value,
		children: make(map[string]*Node[T]),
	}
}

// Value returns the node value.
func (n *Node[T]) Value() T {
	return n.value
}

// AddChild inserts child under key, replacing any previous child with the same key.
func (n *Node[T]) AddChild(key string, child *Node[T]) {
	if child == nil {
		return
	}
	n.children[key] = child
}

// Child returns the child stored under key.
func (n *Node[T]) Child(key string) (*Node[T], bool) {
	child, ok := n.children[key]
	return child, ok
}

// Keys returns the sorted child keys.
func (n *Node[T]) Keys() []string {
	keys := make([]string, 0, len(n.children))
	for key := range n.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of direct children.
func (n *Node[T]) Len() int {
	return len(n.children)
}

// Walk visits n and its descendants depth-first, children in key order.
// The visit function receives the key that led to the node, empty for n itself.
func (n *Node[T]) Walk(visit func(key string, node *Node[T])) {
	n.walk("", visit)
}

func (n *Node[T]) walk(key string, visit func(key string, node *Node[T])) {
	visit(key, n)
	for _, k := range n.Keys() {
		n.children[k].walk(k, visit)
	}
}

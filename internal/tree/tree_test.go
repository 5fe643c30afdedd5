package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNode(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		n := New("root")
		assert.Equal(t, "root", n.Value())
		assert.Equal(t, 0, n.Len())
	})

	t.Run("add child last write wins", func(t *testing.T) {
		n := New("root")
		n.AddChild("a", New("first"))
		n.AddChild("a", New("second"))

		child, ok := n.Child("a")
		assert.True(t, ok)
		assert.Equal(t, "second", child.Value())
		assert.Equal(t, 1, n.Len())
	})

	t.Run("nil child ignored", func(t *testing.T) {
		n := New(1)
		n.AddChild("x", nil)
		_, ok := n.Child("x")
		assert.False(t, ok)
	})

	t.Run("missing child", func(t *testing.T) {
		n := New(1)
		child, ok := n.Child("nope")
		assert.False(t, ok)
		assert.Nil(t, child)
	})

	t.Run("keys are sorted", func(t *testing.T) {
		n := New(0)
		n.AddChild("c", New(3))
		n.AddChild("a", New(1))
		n.AddChild("b", New(2))
		assert.Equal(t, []string{"a", "b", "c"}, n.Keys())
	})

	t.Run("walk depth first", func(t *testing.T) {
		root := New("root")
		dog := New("dog")
		dog.AddChild("small", New("small"))
		root.AddChild("dog", dog)
		root.AddChild("cat", New("cat"))

		var visited []string
		root.Walk(func(key string, node *Node[string]) {
			visited = append(visited, key+"="+node.Value())
		})
		assert.Equal(t, []string{"=root", "cat=cat", "dog=dog", "small=small"}, visited)
	})
}

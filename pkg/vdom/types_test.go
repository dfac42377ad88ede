package vdom

import "testing"

func TestNewElement_SkipsNilChildren(t *testing.T) {
	node := NewElement("div", Props{"class": "root"}, nil, NewText("a"), nil)

	if node.Kind != KindElement {
		t.Fatalf("Expected element kind, got %d", node.Kind)
	}
	if len(node.Kids) != 1 {
		t.Fatalf("Expected 1 child, got %d", len(node.Kids))
	}
	if node.Kids[0].Text != "a" {
		t.Errorf("Expected text child 'a', got %q", node.Kids[0].Text)
	}
}

func TestFind(t *testing.T) {
	tree := NewFragment(
		NewElement("div", Props{"class": "viewport"}),
		NewElement("div", Props{"class": "loading"},
			NewElement("span", Props{"class": "label"}, NewText("Loading")),
		),
	)

	if tree.Find("viewport") == nil {
		t.Error("viewport not found")
	}
	label := tree.Find("label")
	if label == nil {
		t.Fatal("nested label not found")
	}
	if label.Tag != "span" {
		t.Errorf("Expected span, got %s", label.Tag)
	}
	if tree.Find("missing") != nil {
		t.Error("Found a class that is not in the tree")
	}

	var nilNode *VNode
	if nilNode.Find("viewport") != nil {
		t.Error("Find on nil node should return nil")
	}
}

package engine

import (
	"context"
	"encoding/json"
	"strings"
)

// call is the per-entry input to a route handler.
type call struct {
	params    json.RawMessage
	sessionID string
	env       any
}

type handlerFunc func(ctx context.Context, c *call) (any, error)

// node is one segment of the method tree. Only keys inserted with insert
// resolve; a node with children and no leaf is not callable.
type node struct {
	children map[string]*node
	leaf     handlerFunc
}

func newNode() *node { return &node{children: map[string]*node{}} }

func (n *node) insert(method string, h handlerFunc) {
	cur := n
	for _, seg := range strings.Split(method, "/") {
		next, ok := cur.children[seg]
		if !ok {
			next = newNode()
			cur.children[seg] = next
		}
		cur = next
	}
	cur.leaf = h
}

// resolve walks method one "/"-separated segment at a time.
func (n *node) resolve(method string) (handlerFunc, bool) {
	cur := n
	for _, seg := range strings.Split(method, "/") {
		next, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	if cur.leaf == nil {
		return nil, false
	}
	return cur.leaf, true
}

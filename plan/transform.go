package plan

// TreeIdentity tells whether a transform returned the node it was given.
type TreeIdentity bool

const (
	SameTree TreeIdentity = true
	NewTree  TreeIdentity = false
)

// NodeFunc rewrites a single node.
type NodeFunc func(n Node) (Node, TreeIdentity, error)

// TransformDown applies f to n and then to every child of the result, in
// pre-order. Nodes are copied with WithChildren only along changed paths.
func TransformDown(n Node, f NodeFunc) (Node, TreeIdentity, error) {
	n, same, err := f(n)
	if err != nil {
		return nil, SameTree, err
	}

	children := n.Children()
	if len(children) == 0 {
		return n, same, nil
	}

	var newChildren []Node
	for i, c := range children {
		nc, cs, err := TransformDown(c, f)
		if err != nil {
			return nil, SameTree, err
		}
		if cs == NewTree {
			if newChildren == nil {
				newChildren = make([]Node, len(children))
				copy(newChildren, children)
			}
			newChildren[i] = nc
		}
	}
	if newChildren == nil {
		return n, same, nil
	}

	n, err = n.WithChildren(newChildren...)
	if err != nil {
		return nil, SameTree, err
	}
	return n, NewTree, nil
}

// Inspect calls f for n and its descendants in pre-order. Children of a node
// are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range n.Children() {
		Inspect(c, f)
	}
}

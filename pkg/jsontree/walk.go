package jsontree

// Predicate reports whether a node is the one being searched for.
type Predicate func(*Node) bool

// Find walks the tree depth-first and returns the first node satisfying
// match. A node is tested before its children; object members are visited
// in document order and array elements in index order.
func Find(root *Node, match Predicate) *Node {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	switch root.Kind {
	case Object:
		for _, m := range root.members {
			if found := Find(m.Value, match); found != nil {
				return found
			}
		}
	case Array:
		for _, e := range root.elems {
			if found := Find(e, match); found != nil {
				return found
			}
		}
	default:
	}
	return nil
}

// HasKeys returns a predicate matching objects that contain every key in
// required and at least one key in anyOf. An empty anyOf is satisfied.
func HasKeys(required, anyOf []string) Predicate {
	return func(n *Node) bool {
		if !n.IsObject() {
			return false
		}
		for _, k := range required {
			if !n.Has(k) {
				return false
			}
		}
		if len(anyOf) == 0 {
			return true
		}
		for _, k := range anyOf {
			if n.Has(k) {
				return true
			}
		}
		return false
	}
}

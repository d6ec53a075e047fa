package normalize

import (
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/instaprobe/pkg/jsontree"
)

// Path is a key path into a user record, e.g. {"edge_followed_by", "count"}.
type Path []string

func (p Path) lookup(n *jsontree.Node) *jsontree.Node {
	cur := n
	for _, k := range p {
		cur = cur.Get(k)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (p Path) String() string { return strings.Join(p, ".") }

// firstString returns the first accessor holding a non-empty string.
func firstString(n *jsontree.Node, paths ...Path) (string, bool) {
	for _, p := range paths {
		if s, ok := p.lookup(n).Str(); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// firstCount returns the first accessor holding a non-zero count. JSON
// numbers and numeric strings ("1,234" included) are accepted.
func firstCount(n *jsontree.Node, paths ...Path) (int64, bool) {
	for _, p := range paths {
		if c, ok := asCount(p.lookup(n)); ok && c != 0 {
			return c, true
		}
	}
	return 0, false
}

// firstTrue returns true if any accessor holds a true bool.
func firstTrue(n *jsontree.Node, paths ...Path) bool {
	for _, p := range paths {
		if b, ok := p.lookup(n).BoolValue(); ok && b {
			return true
		}
	}
	return false
}

func asCount(n *jsontree.Node) (int64, bool) {
	if i, ok := n.Int(); ok {
		return i, true
	}
	s, ok := n.Str()
	if !ok {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

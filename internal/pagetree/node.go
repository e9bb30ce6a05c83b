package pagetree

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/ordering"
)

// Node is one page of a group's tree.
type Node struct {
	Path     []Segment
	PathPart Segment
	Title    string
	NavTitle string
	Order    ordering.OrderValue
	// Renderers is the ordered, de-duplicated renderer chain.
	Renderers []string
	Body      string
	UserPath  string
	IsIndex   bool
	HideNav   bool
	RecordID  string
	// Multipost nodes are rendered without the inner page template.
	Multipost bool
	Group     *content.Group

	children map[Segment]*Node
	parent   *Node
	root     *Node
}

// NewRoot returns an empty index root for group.
func NewRoot(group *content.Group) *Node {
	n := &Node{IsIndex: true, Group: group, children: map[Segment]*Node{}}
	n.root = n
	return n
}

// Build creates the tree of one group. Every record must belong to group.
func Build(group *content.Group, records []content.Record) (*Node, error) {
	root := NewRoot(group)
	for _, rec := range records {
		if rec.GroupID != group.ID {
			return nil, errors.ValidationError("record belongs to another group").
				WithContext("record", rec.ID).
				WithContext("group", group.ID).
				Build()
		}
		root.Insert(ComputePath(rec.Meta, group.Hierarchy), rec)
	}
	return root, nil
}

// Parent returns the parent node, nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the tree root.
func (n *Node) Root() *Node { return n.root }

// Child returns the direct child at seg.
func (n *Node) Child(seg Segment) (*Node, bool) {
	c, ok := n.children[seg]
	return c, ok
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Insert commits rec at path below n, creating index nodes on the way.
// Committing onto a node that already holds content replaces it.
func (n *Node) Insert(path []Segment, rec content.Record) *Node {
	cur := n
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			next = &Node{
				Path:     append(slices.Clone(cur.Path), seg),
				PathPart: seg,
				IsIndex:  true,
				Group:    n.Group,
				children: map[Segment]*Node{},
				parent:   cur,
				root:     n.root,
			}
			cur.children[seg] = next
		}
		cur = next
	}
	if !cur.IsIndex {
		slog.Warn("Duplicate page path, last record wins",
			logfields.Group(groupID(n.Group)),
			logfields.Path(cur.PathString()),
			slog.String("previous", cur.RecordID),
			logfields.Record(rec.ID))
	}
	cur.commit(rec)
	return cur
}

func (n *Node) commit(rec content.Record) {
	n.Title = rec.Meta.Title()
	n.NavTitle = rec.Meta.NavTitle()
	n.Order = rec.Meta.Order()
	n.Renderers = ParseChain(rec.Meta.Renderer())
	n.Body = rec.Body
	n.UserPath = rec.Meta.Path()
	n.HideNav = rec.Meta.HideNav()
	n.RecordID = rec.ID
	n.IsIndex = false
}

// ParseChain splits a `+`-joined renderer chain, dropping empty and
// repeated tags.
func ParseChain(chain string) []string {
	var out []string
	for tag := range strings.SplitSeq(chain, "+") {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// HasRenderer reports whether tag is in the node's chain.
func (n *Node) HasRenderer(tag string) bool { return slices.Contains(n.Renderers, tag) }

// Key is the node's sibling ordering key.
func (n *Node) Key() ordering.Key { return ordering.KeyOf(n.Order, n.PathPart) }

// Children returns the children in ordering-key order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Node) int { return a.Key().Compare(b.Key()) })
	return out
}

// NavChildren returns the ordered children that appear in navigation.
func (n *Node) NavChildren() []*Node {
	return slices.DeleteFunc(n.Children(), func(c *Node) bool { return c.HideNav })
}

// Walk visits n and then its descendants in order. A non-nil error from fn
// stops the walk.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first node in walk order satisfying pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	_ = n.Walk(func(c *Node) error {
		if pred(c) {
			found = c
			return errStop
		}
		return nil
	})
	return found
}

var errStop = stderrors.New("stop")

// FindByRecordID returns the node holding record id.
func (n *Node) FindByRecordID(id string) *Node {
	return n.Find(func(c *Node) bool { return !c.IsIndex && c.RecordID == id })
}

// Len counts the nodes of the subtree.
func (n *Node) Len() int {
	total := 1
	for _, c := range n.children {
		total += c.Len()
	}
	return total
}

// DisplayTitle derives the display title. A nav title wins, then the explicit
// title (prefixed with an integer segment unless already carrying it), then
// the title-cased user path, then "<level> <segment>".
func (n *Node) DisplayTitle() string {
	if n.NavTitle != "" {
		return n.NavTitle
	}
	part := n.PathPart.String()
	if n.Title != "" {
		if strings.HasPrefix(n.Title, part+": ") || strings.HasSuffix(n.Title, " "+part) {
			return n.Title
		}
		if n.PathPart.IsInt() {
			return part + ": " + n.Title
		}
		return n.Title
	}
	if n.UserPath != "" {
		return titleCase(n.UserPath)
	}
	return n.IndexLabel() + " " + part
}

// IndexLabel is the title-cased hierarchy field at this depth, or "-" when
// the depth has no declared field.
func (n *Node) IndexLabel() string {
	depth := len(n.Path)
	if n.Group == nil || depth == 0 || depth > len(n.Group.Hierarchy) {
		return "-"
	}
	return titleCase(n.Group.Hierarchy[depth-1])
}

// PathString joins the path with slashes.
func (n *Node) PathString() string {
	parts := make([]string, len(n.Path))
	for i, seg := range n.Path {
		parts[i] = seg.String()
	}
	return strings.Join(parts, "/")
}

// Dump writes an indented outline of the subtree. Index nodes show as "_".
func (n *Node) Dump(w io.Writer) error {
	return n.dump(w, 0, "")
}

func (n *Node) dump(w io.Writer, depth int, front string) error {
	label := "_"
	if !n.IsIndex {
		label = n.DisplayTitle()
	}
	if _, err := fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", depth), front, label); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := c.dump(w, depth+1, c.PathPart.String()+" "); err != nil {
			return err
		}
	}
	return nil
}

// Splice makes newRoot the root of n's tree: all of n's children move under
// newRoot at once and every node's root pointer is updated. newRoot must be
// a detached, path-empty node whose children do not collide with n's.
func (n *Node) Splice(newRoot *Node) (*Node, error) {
	if newRoot == nil || newRoot == n {
		return nil, errors.ValidationError("splice requires a distinct new root").Build()
	}
	if len(newRoot.Path) != 0 || newRoot.parent != nil {
		return nil, errors.ValidationError("splice root must have an empty path").
			WithContext("path", newRoot.PathString()).Build()
	}
	if newRoot.children == nil {
		newRoot.children = map[Segment]*Node{}
	}
	for seg := range n.children {
		if _, clash := newRoot.children[seg]; clash {
			return nil, errors.ValidationError("splice would overwrite an existing child").
				WithContext("path", seg.String()).Build()
		}
	}

	for seg, c := range n.children {
		c.parent = newRoot
		newRoot.children[seg] = c
	}
	n.children = map[Segment]*Node{}
	if newRoot.Group == nil {
		newRoot.Group = n.Group
	}
	newRoot.setRoot(newRoot)
	return newRoot, nil
}

func (n *Node) setRoot(root *Node) {
	n.root = root
	for _, c := range n.children {
		c.setRoot(root)
	}
}

// titleCase upper-cases the first letter of each word. Casers keep state,
// so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func groupID(g *content.Group) string {
	if g == nil {
		return ""
	}
	return g.ID
}

package pagetree

import "strings"

// Prefix controls where a group's pages live in the output.
type Prefix struct {
	// URL is prepended to every page URL.
	URL string
	// Group puts each group under its own path part.
	Group bool
}

func (p Prefix) base(g string) string {
	path := ""
	if p.Group {
		path = "/" + g
	}
	return strings.TrimSuffix(p.URL, "/") + path
}

// GroupURL is the URL of the group root.
func (n *Node) GroupURL(p Prefix) string {
	base := p.base(n.groupPathPart())
	if base == "" {
		return "/"
	}
	return base
}

// FSPath is the absolute URL of the node, always ending in a slash.
func (n *Node) FSPath(p Prefix) string {
	rel := n.PathString()
	if rel == "" {
		return p.base(n.groupPathPart()) + "/"
	}
	return p.base(n.groupPathPart()) + "/" + rel + "/"
}

func (n *Node) groupPathPart() string {
	if n.Group == nil {
		return ""
	}
	return n.Group.PathPart
}

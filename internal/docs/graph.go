package docs

import (
	"fmt"
	"slices"
)

// Graph is the arena of documentation nodes. Containment is expressed as id
// lists on each node, so moving a member is a matter of re-keying ids.
type Graph struct {
	nodes      []*Node
	assemblies []ID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) add(n *Node) ID {
	n.ID = ID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

// Node returns the node for id, or nil if id is out of range.
func (g *Graph) Node(id ID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the arena size, including detached nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Assemblies returns the root assembly ids.
func (g *Graph) Assemblies() []ID {
	return g.assemblies
}

// AddAssembly appends a root assembly node.
func (g *Graph) AddAssembly(name string) ID {
	id := g.add(&Node{Kind: KindAssembly, Name: name, UID: "A:" + name, Parent: NoID})
	g.assemblies = append(g.assemblies, id)
	return id
}

// AddNamespace appends a namespace to an assembly.
func (g *Graph) AddNamespace(assembly ID, name string) (ID, error) {
	if err := g.expect(assembly, KindAssembly); err != nil {
		return NoID, err
	}
	id := g.add(&Node{Kind: KindNamespace, Name: name, UID: "N:" + name, Parent: assembly})
	g.nodes[assembly].Children = append(g.nodes[assembly].Children, id)
	return id, nil
}

// AddType appends a type to a namespace. An empty uid defaults to "T:" plus
// the type's full name.
func (g *Graph) AddType(namespace ID, name, uid string, info TypeInfo) (ID, error) {
	if err := g.expect(namespace, KindNamespace); err != nil {
		return NoID, err
	}
	ns := g.nodes[namespace]
	info.Namespace = ns.Name
	n := &Node{Kind: KindType, Name: name, UID: uid, Parent: namespace, Type: &info}
	if n.UID == "" {
		n.UID = "T:" + n.FullName()
	}
	id := g.add(n)
	ns.Children = append(ns.Children, id)
	return id, nil
}

// AddMember appends a member to a type.
func (g *Graph) AddMember(typ ID, name, uid string, info MemberInfo) (ID, error) {
	if err := g.expect(typ, KindType); err != nil {
		return NoID, err
	}
	info.DeclaringType = typ
	info.DeclaringUID = g.nodes[typ].UID
	info.ExtendedTypeID = NoID
	id := g.add(&Node{Kind: KindMember, Name: name, UID: uid, Parent: typ, Member: &info})
	g.nodes[typ].Children = append(g.nodes[typ].Children, id)
	return id, nil
}

// Move re-parents a member onto another type. Moving a member onto its
// current parent is a no-op.
func (g *Graph) Move(member, owner ID) error {
	if err := g.expect(member, KindMember); err != nil {
		return err
	}
	if err := g.expect(owner, KindType); err != nil {
		return err
	}
	n := g.nodes[member]
	if n.Parent == owner {
		return nil
	}
	if old := g.Node(n.Parent); old != nil {
		old.Children = removeID(old.Children, member)
	}
	dst := g.nodes[owner]
	if !slices.Contains(dst.Children, member) {
		dst.Children = append(dst.Children, member)
	}
	n.Parent = owner
	return nil
}

// Detach removes a node from its parent's children. The node stays in the
// arena but is no longer reachable.
func (g *Graph) Detach(id ID) {
	n := g.Node(id)
	if n == nil {
		return
	}
	if parent := g.Node(n.Parent); parent != nil {
		parent.Children = removeID(parent.Children, id)
	} else if n.Kind == KindAssembly {
		g.assemblies = removeID(g.assemblies, id)
	}
	n.Parent = NoID
}

// Walk visits every reachable node depth-first, parents before children.
// Returning false from fn skips the node's children.
func (g *Graph) Walk(fn func(n *Node) bool) {
	var visit func(id ID)
	visit = func(id ID) {
		n := g.nodes[id]
		if !fn(n) {
			return
		}
		for _, child := range n.Children {
			visit(child)
		}
	}
	for _, id := range g.assemblies {
		visit(id)
	}
}

// Reachable returns the ids of all reachable nodes in walk order.
func (g *Graph) Reachable() []ID {
	var ids []ID
	g.Walk(func(n *Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// AssemblyOf returns the assembly that transitively contains id.
func (g *Graph) AssemblyOf(id ID) ID {
	for n := g.Node(id); n != nil; n = g.Node(n.Parent) {
		if n.Kind == KindAssembly {
			return n.ID
		}
	}
	return NoID
}

// Owners returns every reachable node whose children include id. A
// consistent graph has at most one.
func (g *Graph) Owners(id ID) []ID {
	var owners []ID
	g.Walk(func(n *Node) bool {
		if slices.Contains(n.Children, id) {
			owners = append(owners, n.ID)
		}
		return true
	})
	return owners
}

func (g *Graph) expect(id ID, kind Kind) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("node %d does not exist", id)
	}
	if n.Kind != kind {
		return fmt.Errorf("node %d (%s) is a %s, want %s", id, n.UID, n.Kind, kind)
	}
	return nil
}

func removeID(ids []ID, id ID) []ID {
	return slices.DeleteFunc(ids, func(x ID) bool { return x == id })
}

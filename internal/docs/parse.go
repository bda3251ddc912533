package docs

import (
	"encoding/json"
	"fmt"
)

// The dump format is the hand-off between the symbol loader, this tool and
// downstream renderers. It nests assemblies, namespaces, types and members.

type dumpGraph struct {
	Assemblies []dumpAssembly `json:"assemblies"`
}

type dumpAssembly struct {
	Name       string          `json:"name"`
	Docs       Docs            `json:"docs"`
	References []Reference     `json:"references,omitempty"`
	Namespaces []dumpNamespace `json:"namespaces,omitempty"`
}

type dumpNamespace struct {
	Name       string      `json:"name"`
	Docs       Docs        `json:"docs"`
	References []Reference `json:"references,omitempty"`
	Types      []dumpType  `json:"types,omitempty"`
}

type dumpType struct {
	UID        string       `json:"uid"`
	Name       string       `json:"name"`
	Kind       TypeKind     `json:"kind"`
	External   bool         `json:"external,omitempty"`
	Docs       Docs         `json:"docs"`
	References []Reference  `json:"references,omitempty"`
	Inline     []Reference  `json:"inline_references,omitempty"`
	Members    []dumpMember `json:"members,omitempty"`
}

type dumpMember struct {
	UID           string      `json:"uid"`
	Name          string      `json:"name"`
	Kind          MemberKind  `json:"kind"`
	Signature     string      `json:"signature,omitempty"`
	Extension     bool        `json:"extension,omitempty"`
	ExtendedType  string      `json:"extended_type,omitempty"`
	DeclaringType string      `json:"declaring_type,omitempty"` // set once relocated
	Docs          Docs        `json:"docs"`
	References    []Reference `json:"references,omitempty"`
	Inline        []Reference `json:"inline_references,omitempty"`
}

// Parse builds a graph from dump JSON.
func Parse(data []byte) (*Graph, error) {
	var dump dumpGraph
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("unmarshaling graph JSON: %w", err)
	}

	g := NewGraph()
	typesByUID := make(map[string]ID)
	declared := make(map[ID]string)

	for _, a := range dump.Assemblies {
		if a.Name == "" {
			return nil, fmt.Errorf("assembly without a name")
		}
		asmID := g.AddAssembly(a.Name)
		setDocs(g.Node(asmID), a.Docs, a.References, nil)

		for _, ns := range a.Namespaces {
			nsID, err := g.AddNamespace(asmID, ns.Name)
			if err != nil {
				return nil, fmt.Errorf("assembly %s: %w", a.Name, err)
			}
			setDocs(g.Node(nsID), ns.Docs, ns.References, nil)

			for _, t := range ns.Types {
				if t.Name == "" {
					return nil, fmt.Errorf("namespace %s: type without a name", ns.Name)
				}
				typID, err := g.AddType(nsID, t.Name, t.UID, TypeInfo{Kind: t.Kind, External: t.External})
				if err != nil {
					return nil, fmt.Errorf("namespace %s: %w", ns.Name, err)
				}
				typ := g.Node(typID)
				setDocs(typ, t.Docs, t.References, t.Inline)
				if _, dup := typesByUID[typ.UID]; !dup {
					typesByUID[typ.UID] = typID
				}

				for _, m := range t.Members {
					if m.Name == "" {
						return nil, fmt.Errorf("type %s: member without a name", typ.UID)
					}
					memID, err := g.AddMember(typID, m.Name, m.UID, MemberInfo{
						Kind:         m.Kind,
						Signature:    m.Signature,
						Extension:    m.Extension,
						ExtendedType: m.ExtendedType,
					})
					if err != nil {
						return nil, fmt.Errorf("type %s: %w", typ.UID, err)
					}
					setDocs(g.Node(memID), m.Docs, m.References, m.Inline)
					if m.DeclaringType != "" {
						declared[memID] = m.DeclaringType
					}
				}
			}
		}
	}

	// Members already relocated point back at their declaring type, which
	// may be detached and therefore absent from the dump.
	for memID, uid := range declared {
		member := g.Node(memID).Member
		member.DeclaringUID = uid
		if declID, ok := typesByUID[uid]; ok {
			member.DeclaringType = declID
		} else {
			member.DeclaringType = NoID
		}
		member.ExtendedTypeID = g.Node(memID).Parent
	}
	return g, nil
}

func setDocs(n *Node, d Docs, refs, inline []Reference) {
	n.Docs = d
	n.References = refs
	n.Inline = inline
}

// Encode writes the reachable part of g in the dump format.
func Encode(g *Graph) ([]byte, error) {
	var dump dumpGraph
	for _, asmID := range g.Assemblies() {
		a := g.Node(asmID)
		da := dumpAssembly{Name: a.Name, Docs: a.Docs, References: a.References}
		for _, nsID := range a.Children {
			ns := g.Node(nsID)
			dn := dumpNamespace{Name: ns.Name, Docs: ns.Docs, References: ns.References}
			for _, typID := range ns.Children {
				t := g.Node(typID)
				dt := dumpType{
					UID:        t.UID,
					Name:       t.Name,
					Kind:       t.Type.Kind,
					External:   t.Type.External,
					Docs:       t.Docs,
					References: t.References,
					Inline:     t.Inline,
				}
				for _, memID := range t.Children {
					m := g.Node(memID)
					dm := dumpMember{
						UID:          m.UID,
						Name:         m.Name,
						Kind:         m.Member.Kind,
						Signature:    m.Member.Signature,
						Extension:    m.Member.Extension,
						ExtendedType: m.Member.ExtendedType,
						Docs:         m.Docs,
						References:   m.References,
						Inline:       m.Inline,
					}
					if m.Member.DeclaringType != m.Parent {
						dm.DeclaringType = m.Member.DeclaringUID
					}
					dt.Members = append(dt.Members, dm)
				}
				dn.Types = append(dn.Types, dt)
			}
			da.Namespaces = append(da.Namespaces, dn)
		}
		dump.Assemblies = append(dump.Assemblies, da)
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling graph JSON: %w", err)
	}
	return data, nil
}

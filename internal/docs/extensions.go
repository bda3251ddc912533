package docs

import (
	"slices"
	"strings"
)

// RelocateOptions controls extension member relocation.
type RelocateOptions struct {
	// SynthesizePlaceholders creates an external placeholder type when the
	// extended type is not part of the graph. When false, such members stay
	// on their declaring type.
	SynthesizePlaceholders bool
}

// Relocation records one member moved onto the type it extends.
type Relocation struct {
	Member ID
	From   ID
	To     ID
}

// RelocationReport summarizes a relocation pass.
type RelocationReport struct {
	Moved        []Relocation
	Placeholders []ID
	Removed      []ID // helper types detached because relocation emptied them
	Skipped      []ID // extension members left in place (missing target, synthesis off)
}

// RelocateExtensions moves every member flagged as an extension onto the type
// it extends. It must run before BuildIndex. Running it again on its own
// output changes nothing.
func RelocateExtensions(g *Graph, opts RelocateOptions) RelocationReport {
	var report RelocationReport

	types := make(map[string]ID)
	namespaces := make(map[string]ID)
	var extensions []ID
	g.Walk(func(n *Node) bool {
		switch n.Kind {
		case KindNamespace:
			if _, ok := namespaces[n.Name]; !ok {
				namespaces[n.Name] = n.ID
			}
		case KindType:
			if _, ok := types[n.FullName()]; !ok {
				types[n.FullName()] = n.ID
			}
		case KindMember:
			if n.Member.Extension && n.Member.ExtendedType != "" {
				extensions = append(extensions, n.ID)
			}
		}
		return true
	})

	helpers := make(map[ID]bool)
	for _, memberID := range extensions {
		member := g.nodes[memberID]
		target := extendedTypeName(member.Member.ExtendedType)
		from := member.Parent

		ownerID, ok := types[target]
		if !ok {
			if !opts.SynthesizePlaceholders {
				report.Skipped = append(report.Skipped, memberID)
				continue
			}
			ownerID = synthesizePlaceholder(g, target, g.AssemblyOf(from), namespaces)
			types[target] = ownerID
			report.Placeholders = append(report.Placeholders, ownerID)
		}

		member.Member.ExtendedTypeID = ownerID
		if from == ownerID {
			continue
		}
		if err := g.Move(memberID, ownerID); err != nil {
			report.Skipped = append(report.Skipped, memberID)
			continue
		}
		helpers[from] = true
		report.Moved = append(report.Moved, Relocation{Member: memberID, From: from, To: ownerID})
	}

	// Detach helpers in arena order so the report is deterministic.
	ids := make([]ID, 0, len(helpers))
	for id := range helpers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		helper := g.nodes[id]
		if len(helper.Children) == 0 && !helper.Type.External {
			g.Detach(id)
			report.Removed = append(report.Removed, id)
		}
	}
	return report
}

// synthesizePlaceholder creates an external type for fullName, re-using a
// namespace of the same name anywhere in the graph or creating one in the
// given assembly.
func synthesizePlaceholder(g *Graph, fullName string, assembly ID, namespaces map[string]ID) ID {
	nsName, typeName := splitTypeName(fullName)

	nsID, ok := namespaces[nsName]
	if !ok {
		if assembly == NoID {
			assembly = g.externalAssembly()
		}
		// assembly is known to be an assembly node here, so this cannot fail.
		nsID, _ = g.AddNamespace(assembly, nsName)
		namespaces[nsName] = nsID
	}

	id, _ := g.AddType(nsID, typeName, "T:"+fullName, TypeInfo{Kind: TypeClass, External: true})
	return id
}

// externalAssembly returns the assembly hosting placeholders whose helper has
// no assembly, creating it on first use.
func (g *Graph) externalAssembly() ID {
	const name = "external"
	for _, id := range g.assemblies {
		if g.nodes[id].Name == name {
			return id
		}
	}
	return g.AddAssembly(name)
}

// extendedTypeName normalizes an extended type reference to a full type name.
// Both "T:Ns.Type" and "Ns.Type" are accepted.
func extendedTypeName(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimPrefix(s, "T:")
}

// splitTypeName splits "Ns.Sub.Type`1" into "Ns.Sub" and "Type`1". Generic
// argument lists are ignored when locating the last separator.
func splitTypeName(fullName string) (namespace, name string) {
	head := fullName
	if i := strings.IndexAny(head, "<{["); i >= 0 {
		head = head[:i]
	}
	i := strings.LastIndex(head, ".")
	if i < 0 {
		return "", fullName
	}
	return fullName[:i], fullName[i+1:]
}

package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a small graph with a helper class declaring extension methods.
//
//	Contoso (assembly)
//	  Contoso.Collections
//	    Bag            Add, Count
//	    BagExtensions  AddRange [ext Bag], Shuffle [ext IEnumerable`1], Where [ext IEnumerable`1]
//	    Mixed          Helper, Tally [ext Bag]
type fixture struct {
	g                                *Graph
	asm, ns                          ID
	bag, add, count                  ID
	helper, addRange, shuffle, where ID
	mixed, mixedHelper, tally        ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{g: NewGraph()}
	g := f.g
	var err error

	f.asm = g.AddAssembly("Contoso")
	f.ns, err = g.AddNamespace(f.asm, "Contoso.Collections")
	require.NoError(t, err)

	f.bag = mustType(t, g, f.ns, "Bag", TypeClass)
	f.add = mustMember(t, g, f.bag, "M:Contoso.Collections.Bag.Add(System.Object)", "Add", MemberInfo{Kind: MemberMethod})
	f.count = mustMember(t, g, f.bag, "P:Contoso.Collections.Bag.Count", "Count", MemberInfo{Kind: MemberProperty})

	f.helper = mustType(t, g, f.ns, "BagExtensions", TypeClass)
	f.addRange = mustMember(t, g, f.helper, "M:Contoso.Collections.BagExtensions.AddRange(Contoso.Collections.Bag,System.Object[])", "AddRange",
		MemberInfo{Kind: MemberMethod, Extension: true, ExtendedType: "T:Contoso.Collections.Bag"})
	f.shuffle = mustMember(t, g, f.helper, "M:Contoso.Collections.BagExtensions.Shuffle``1(System.Collections.Generic.IEnumerable{``0})", "Shuffle",
		MemberInfo{Kind: MemberMethod, Extension: true, ExtendedType: "System.Collections.Generic.IEnumerable`1"})
	f.where = mustMember(t, g, f.helper, "M:Contoso.Collections.BagExtensions.Where``1(System.Collections.Generic.IEnumerable{``0})", "Where",
		MemberInfo{Kind: MemberMethod, Extension: true, ExtendedType: "T:System.Collections.Generic.IEnumerable`1"})

	f.mixed = mustType(t, g, f.ns, "Mixed", TypeClass)
	f.mixedHelper = mustMember(t, g, f.mixed, "M:Contoso.Collections.Mixed.Helper", "Helper", MemberInfo{Kind: MemberMethod})
	f.tally = mustMember(t, g, f.mixed, "M:Contoso.Collections.Mixed.Tally(Contoso.Collections.Bag)", "Tally",
		MemberInfo{Kind: MemberMethod, Extension: true, ExtendedType: "Contoso.Collections.Bag"})
	return f
}

func mustType(t *testing.T, g *Graph, ns ID, name string, kind TypeKind) ID {
	t.Helper()
	id, err := g.AddType(ns, name, "", TypeInfo{Kind: kind})
	require.NoError(t, err)
	return id
}

func mustMember(t *testing.T, g *Graph, typ ID, uid, name string, info MemberInfo) ID {
	t.Helper()
	id, err := g.AddMember(typ, name, uid, info)
	require.NoError(t, err)
	return id
}

func TestGraph_Add(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	g := f.g

	assert.Equal(t, []ID{f.asm}, g.Assemblies())
	assert.Equal(t, "A:Contoso", g.Node(f.asm).UID)
	assert.Equal(t, "N:Contoso.Collections", g.Node(f.ns).UID)

	bag := g.Node(f.bag)
	assert.Equal(t, "T:Contoso.Collections.Bag", bag.UID)
	assert.Equal(t, "Contoso.Collections.Bag", bag.FullName())
	assert.Equal(t, "Contoso.Collections", bag.Type.Namespace)
	assert.Equal(t, []ID{f.add, f.count}, bag.Children)

	add := g.Node(f.add)
	assert.Equal(t, f.bag, add.Parent)
	assert.Equal(t, f.bag, add.Member.DeclaringType)
	assert.Equal(t, "T:Contoso.Collections.Bag", add.Member.DeclaringUID)
	assert.Equal(t, NoID, add.Member.ExtendedTypeID)
}

func TestGraph_AddRejectsWrongParent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	g := f.g

	_, err := g.AddNamespace(f.ns, "Nested")
	assert.ErrorContains(t, err, "is a namespace, want assembly")
	_, err = g.AddType(f.asm, "X", "", TypeInfo{})
	assert.ErrorContains(t, err, "is a assembly, want namespace")
	_, err = g.AddMember(f.add, "X", "M:X", MemberInfo{})
	assert.ErrorContains(t, err, "want type")
	_, err = g.AddMember(ID(999), "X", "M:X", MemberInfo{})
	assert.ErrorContains(t, err, "does not exist")
}

func TestGraph_Move(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	g := f.g

	require.NoError(t, g.Move(f.addRange, f.bag))
	assert.Equal(t, []ID{f.add, f.count, f.addRange}, g.Node(f.bag).Children)
	assert.NotContains(t, g.Node(f.helper).Children, f.addRange)
	assert.Equal(t, f.bag, g.Node(f.addRange).Parent)
	assert.Equal(t, []ID{f.bag}, g.Owners(f.addRange))

	// Moving again is a no-op and never duplicates.
	require.NoError(t, g.Move(f.addRange, f.bag))
	assert.Equal(t, []ID{f.add, f.count, f.addRange}, g.Node(f.bag).Children)

	assert.Error(t, g.Move(f.bag, f.helper))
	assert.Error(t, g.Move(f.addRange, f.ns))
}

func TestGraph_DetachAndWalk(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	g := f.g

	g.Detach(f.mixed)
	assert.Equal(t, NoID, g.Node(f.mixed).Parent)
	assert.NotContains(t, g.Reachable(), f.mixed)
	assert.NotContains(t, g.Reachable(), f.tally)
	assert.Equal(t, 12, g.Len())

	var kinds []Kind
	g.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != KindNamespace
	})
	assert.Equal(t, []Kind{KindAssembly, KindNamespace}, kinds)

	assert.Equal(t, f.asm, g.AssemblyOf(f.count))
	assert.Equal(t, NoID, g.AssemblyOf(f.tally))
	assert.Nil(t, g.Node(NoID))
}

func TestKinds_Text(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		K Kind
		T TypeKind
		M MemberKind
		R RefKind
		S RefState
	}{KindMember, TypeDelegate, MemberEvent, RefKeyword, StateUnresolved})
	require.NoError(t, err)
	assert.JSONEq(t, `{"K":"member","T":"delegate","M":"event","R":"keyword","S":"unresolved"}`, string(data))

	var tk TypeKind
	assert.Error(t, tk.UnmarshalText([]byte("record")))
	var mk MemberKind
	require.NoError(t, mk.UnmarshalText([]byte("constructor")))
	assert.Equal(t, MemberConstructor, mk)
	_, err = Kind(9).MarshalText()
	assert.Error(t, err)
}

func TestDocs_FieldsAndClone(t *testing.T) {
	t.Parallel()

	d := Docs{Summary: "s", Params: []NamedDoc{{Name: "x", Text: "p"}}, TypeParams: []NamedDoc{{Name: "T", Text: "tp"}}}
	fields := d.Fields()
	require.Len(t, fields, 11)
	assert.Equal(t, "s", *fields[0])
	assert.Equal(t, "p", *fields[9])
	assert.Equal(t, "tp", *fields[10])

	c := d.Clone()
	*c.Fields()[9] = "changed"
	assert.Equal(t, "p", d.Params[0].Text)
}

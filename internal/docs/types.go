package docs

import "fmt"

// ID addresses a node in a Graph's arena.
type ID int32

// NoID marks an absent node reference.
const NoID ID = -1

// Kind is the closed set of entity kinds.
type Kind uint8

const (
	KindAssembly Kind = iota
	KindNamespace
	KindType
	KindMember
)

var kindNames = [...]string{"assembly", "namespace", "type", "member"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", b)
}

// TypeKind is the closed set of type subkinds.
type TypeKind uint8

const (
	TypeClass TypeKind = iota
	TypeInterface
	TypeStruct
	TypeEnum
	TypeDelegate
)

var typeKindNames = [...]string{"class", "interface", "struct", "enum", "delegate"}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("typekind(%d)", k)
}

func (k TypeKind) MarshalText() ([]byte, error) {
	if int(k) >= len(typeKindNames) {
		return nil, fmt.Errorf("invalid type kind %d", k)
	}
	return []byte(typeKindNames[k]), nil
}

func (k *TypeKind) UnmarshalText(b []byte) error {
	for i, name := range typeKindNames {
		if name == string(b) {
			*k = TypeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown type kind %q", b)
}

// MemberKind is the closed set of member subkinds.
type MemberKind uint8

const (
	MemberMethod MemberKind = iota
	MemberConstructor
	MemberProperty
	MemberField
	MemberEvent
)

var memberKindNames = [...]string{"method", "constructor", "property", "field", "event"}

func (k MemberKind) String() string {
	if int(k) < len(memberKindNames) {
		return memberKindNames[k]
	}
	return fmt.Sprintf("memberkind(%d)", k)
}

func (k MemberKind) MarshalText() ([]byte, error) {
	if int(k) >= len(memberKindNames) {
		return nil, fmt.Errorf("invalid member kind %d", k)
	}
	return []byte(memberKindNames[k]), nil
}

func (k *MemberKind) UnmarshalText(b []byte) error {
	for i, name := range memberKindNames {
		if name == string(b) {
			*k = MemberKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown member kind %q", b)
}

// NamedDoc is a documentation entry keyed by a parameter or type parameter name.
type NamedDoc struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Docs holds the free-text annotation slots of an entity. Every slot is
// rewritten independently; empty slots are left alone.
type Docs struct {
	Summary        string     `json:"summary,omitempty"`
	Remarks        string     `json:"remarks,omitempty"`
	Examples       string     `json:"examples,omitempty"`
	Usage          string     `json:"usage,omitempty"`
	BestPractices  string     `json:"best_practices,omitempty"`
	Patterns       string     `json:"patterns,omitempty"`
	Considerations string     `json:"considerations,omitempty"`
	Returns        string     `json:"returns,omitempty"`
	Value          string     `json:"value,omitempty"`
	Params         []NamedDoc `json:"params,omitempty"`
	TypeParams     []NamedDoc `json:"type_params,omitempty"`
}

// Fields returns pointers to every text slot, in a fixed order.
func (d *Docs) Fields() []*string {
	fields := []*string{
		&d.Summary, &d.Remarks, &d.Examples, &d.Usage,
		&d.BestPractices, &d.Patterns, &d.Considerations,
		&d.Returns, &d.Value,
	}
	for i := range d.Params {
		fields = append(fields, &d.Params[i].Text)
	}
	for i := range d.TypeParams {
		fields = append(fields, &d.TypeParams[i].Text)
	}
	return fields
}

// Clone returns a deep copy so a worker can rewrite fields without touching the graph.
func (d Docs) Clone() Docs {
	c := d
	c.Params = append([]NamedDoc(nil), d.Params...)
	c.TypeParams = append([]NamedDoc(nil), d.TypeParams...)
	return c
}

// RefKind classifies a reference token.
type RefKind uint8

const (
	RefSymbol   RefKind = iota // internal-symbol
	RefExternal                // external-resource (literal URL)
	RefKeyword
)

var refKindNames = [...]string{"symbol", "external", "keyword"}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) {
		return refKindNames[k]
	}
	return fmt.Sprintf("refkind(%d)", k)
}

func (k RefKind) MarshalText() ([]byte, error) {
	if int(k) >= len(refKindNames) {
		return nil, fmt.Errorf("invalid reference kind %d", k)
	}
	return []byte(refKindNames[k]), nil
}

func (k *RefKind) UnmarshalText(b []byte) error {
	for i, name := range refKindNames {
		if name == string(b) {
			*k = RefKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown reference kind %q", b)
}

// RefState is the resolution state of a reference. The zero value means the
// reference has not been through a resolution pass yet.
type RefState uint8

const (
	StatePending RefState = iota
	StateInternal
	StateExternal
	StateUnresolved
)

var refStateNames = [...]string{"pending", "internal", "external", "unresolved"}

func (s RefState) String() string {
	if int(s) < len(refStateNames) {
		return refStateNames[s]
	}
	return fmt.Sprintf("refstate(%d)", s)
}

func (s RefState) MarshalText() ([]byte, error) {
	if int(s) >= len(refStateNames) {
		return nil, fmt.Errorf("invalid reference state %d", s)
	}
	return []byte(refStateNames[s]), nil
}

func (s *RefState) UnmarshalText(b []byte) error {
	for i, name := range refStateNames {
		if name == string(b) {
			*s = RefState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown reference state %q", b)
}

// Reference is an outbound reference record. Target is an internal anchor for
// StateInternal, a URL for StateExternal, and empty otherwise.
type Reference struct {
	Raw    string   `json:"raw"`
	Label  string   `json:"label,omitempty"`
	Kind   RefKind  `json:"kind"`
	State  RefState `json:"state,omitempty"`
	Target string   `json:"target,omitempty"`
}

// TypeInfo is the payload of a KindType node.
type TypeInfo struct {
	Kind      TypeKind
	Namespace string
	External  bool // synthesized placeholder for a type outside the graph
}

// MemberInfo is the payload of a KindMember node.
type MemberInfo struct {
	Kind         MemberKind
	Signature    string
	Extension    bool
	ExtendedType string
	// DeclaringType is the container the member was declared in. It differs
	// from the node's Parent once an extension member has been relocated,
	// and is NoID when that container is not part of the graph.
	DeclaringType ID
	DeclaringUID  string
	// ExtendedTypeID is the owning type after relocation, NoID before.
	ExtendedTypeID ID
}

// Node is one entity in the graph. Exactly one of Type and Member is set for
// KindType and KindMember nodes; both are nil otherwise.
type Node struct {
	ID         ID
	Kind       Kind
	Name       string
	UID        string
	Docs       Docs
	References []Reference
	Inline     []Reference
	Parent     ID
	Children   []ID

	Type   *TypeInfo
	Member *MemberInfo
}

// FullName is the namespace-qualified name of a type, or the namespace name
// for namespaces.
func (n *Node) FullName() string {
	if n.Kind == KindType && n.Type.Namespace != "" {
		return n.Type.Namespace + "." + n.Name
	}
	return n.Name
}

package geometry

// Node is the serializable form of a Source tree.
type Node struct {
	Kind     string    `json:"kind"`
	Center   *Vector3  `json:"center,omitempty"`
	Size     *Vector3  `json:"size,omitempty"`
	Radius   *float64  `json:"radius,omitempty"`
	Ends     []Vector3 `json:"ends,omitempty"`
	Offset   *Vector3  `json:"offset,omitempty"`
	Factor   *Vector3  `json:"factor,omitempty"`
	Bounds   Bounds    `json:"bounds"`
	Children []Node    `json:"children,omitempty"`
}

// Tree converts src into its Node form. A nil source yields nil.
func Tree(src Source) *Node {
	if src == nil {
		return nil
	}
	n := node(src)
	return &n
}

func node(src Source) Node {
	n := Node{Kind: src.Kind(), Bounds: src.Bounds()}
	switch s := src.(type) {
	case *Sphere:
		n.Center, n.Radius = &s.Center, &s.Radius
	case *Box:
		n.Center, n.Size = &s.Center, &s.Size
	case *Cylinder:
		n.Ends, n.Radius = []Vector3{s.V0, s.V1}, &s.Radius
	case *Composite:
		for _, ch := range s.Children {
			n.Children = append(n.Children, node(ch))
		}
	case *Translation:
		n.Offset = &s.Offset
		n.Children = []Node{node(s.Child)}
	case *Scaling:
		n.Factor = &s.Factor
		n.Children = []Node{node(s.Child)}
	}
	return n
}

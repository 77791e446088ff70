package element

// Index resolves "type/id" references to their originating elements.
// It is built once per document and owned by a single conversion run.
type Index map[string]*Element

// BuildIndex indexes every node, way and relation in the document.
// Other element kinds (count, bounds-only entries) are skipped.
func BuildIndex(doc *Document) Index {
	ix := make(Index, len(doc.Elements))
	for i := range doc.Elements {
		el := &doc.Elements[i]
		switch el.Type {
		case TypeNode, TypeWay, TypeRelation:
			ix[el.Key()] = el
		}
	}
	return ix
}

// Get looks up an element by type and id. Returns nil when absent.
func (ix Index) Get(typ string, id int64) *Element {
	return ix[Key(typ, id)]
}

// Node looks up a node by id.
func (ix Index) Node(id int64) *Element {
	return ix[Key(TypeNode, id)]
}

// Resolve follows a ref stub to the element it points at. The stub's own
// type determines the namespace.
func (ix Index) Resolve(stub *Element) *Element {
	return ix[Key(stub.Type, stub.Ref)]
}

package rdf

// Resource is a node under construction together with its outgoing edges.
//
// Serializers build Resource trees and hand them to Graph.AddResource, which
// flattens them into triples. A Resource may be reachable from several
// parents, and trees may contain cycles.
type Resource struct {
	id    string
	props []Property
}

// Property is one outgoing edge of a Resource.
type Property struct {
	Predicate string
	Object    Node
}

func (*Resource) node() {}

// NewResource returns a resource named id, or an anonymous one when id is
// empty.
func NewResource(id string) *Resource { return &Resource{id: id} }

// ID returns the resource IRI, empty for anonymous resources.
func (r *Resource) ID() string { return r.id }

// Add appends an edge and returns r.
func (r *Resource) Add(predicate string, object Node) *Resource {
	if object == nil {
		return r
	}
	r.props = append(r.props, Property{Predicate: predicate, Object: object})
	return r
}

// AddType appends an rdf:type edge.
func (r *Resource) AddType(typeIRI string) *Resource {
	return r.Add(RDFType, IRI(typeIRI))
}

// Properties returns the edges in insertion order.
func (r *Resource) Properties() []Property { return r.props }

// AddResource flattens the tree rooted at r into g and returns r's term.
//
// Each distinct *Resource is emitted exactly once, so shared substructures
// produce one node definition and cycles terminate.
func (g *Graph) AddResource(r *Resource) (Term, error) {
	return g.addResource(r, make(map[*Resource]Term))
}

func (g *Graph) addResource(r *Resource, visited map[*Resource]Term) (Term, error) {
	if t, ok := visited[r]; ok {
		return t, nil
	}
	subject := g.Node(r.id)
	visited[r] = subject
	for _, p := range r.props {
		var object Term
		switch o := p.Object.(type) {
		case Term:
			object = o
		case *Resource:
			if o == nil {
				continue
			}
			t, err := g.addResource(o, visited)
			if err != nil {
				return Term{}, err
			}
			object = t
		default:
			continue
		}
		if err := g.Add(subject, IRI(p.Predicate), object); err != nil {
			return Term{}, err
		}
	}
	return subject, nil
}

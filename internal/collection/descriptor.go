package collection

// Field describes one attribute of an entity collection as the console
// presents it: the exact backend payload key, a display label, and flags
// driving validation and payload shaping.
type Field struct {
	Key      string
	Label    string
	Required bool
	// Secret fields (passwords) are omitted from update payloads when left
	// empty; an empty value means "keep current", never "overwrite with
	// empty".
	Secret  bool
	Numeric bool
}

// Descriptor parameterises a Controller for one entity collection.
type Descriptor struct {
	// Name keys cache entries and metrics, e.g. "vendedores".
	Name string
	// Path is the backend collection path, e.g. "/vendedores".
	Path string
	// Tenanted collections live under /tenants/{id}.
	Tenanted bool
	Fields   []Field
	// SearchKeys are the attributes the client-side text filter matches on.
	SearchKeys []string
	// StateKey, when non-empty, enables the /{id}/estado toggle sub-resource
	// with this payload attribute (e.g. "estado_cuenta").
	StateKey string
}

func (d Descriptor) field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

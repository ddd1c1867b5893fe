package state

// Attribute is one named scalar rendered into the device description.
type Attribute struct {
	Name  string `mapstructure:"name" json:"name"`
	Value string `mapstructure:"value" json:"value"`
}

// Attributes keeps insertion order. Setting an existing name replaces the
// value in place so the rendered order stays stable across updates.
type Attributes struct {
	entries []Attribute
}

func NewAttributes(attrs ...Attribute) Attributes {
	var a Attributes
	for _, attr := range attrs {
		a.Set(attr.Name, attr.Value)
	}
	return a
}

func (a *Attributes) Set(name, value string) {
	for i := range a.entries {
		if a.entries[i].Name == name {
			a.entries[i].Value = value
			return
		}
	}
	a.entries = append(a.entries, Attribute{Name: name, Value: value})
}

func (a Attributes) Get(name string) (string, bool) {
	for _, e := range a.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func (a Attributes) Len() int {
	return len(a.entries)
}

// All returns a copy of the entries in order.
func (a Attributes) All() []Attribute {
	if len(a.entries) == 0 {
		return nil
	}
	out := make([]Attribute, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a Attributes) Clone() Attributes {
	return Attributes{entries: a.All()}
}

// Merge applies updates on top of a copy of a.
func (a Attributes) Merge(updates []Attribute) Attributes {
	merged := a.Clone()
	for _, u := range updates {
		merged.Set(u.Name, u.Value)
	}
	return merged
}

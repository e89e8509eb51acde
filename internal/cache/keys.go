package cache

// DefaultPrefix namespaces every slot this package writes.
const DefaultPrefix = "cachier"

// Derived holds the three storage keys backing one logical key.
type Derived struct {
	Data   string
	Type   string
	Expire string
}

// Keys derives the storage keys for id under prefix. It is pure: equal inputs
// always yield equal keys.
func Keys(prefix, id string) Derived {
	return Derived{
		Data:   prefix + ":data:" + id,
		Type:   prefix + ":type:" + id,
		Expire: prefix + ":expire:" + id,
	}
}

func (d Derived) all() []string { return []string{d.Data, d.Type, d.Expire} }

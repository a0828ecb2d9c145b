package value

// Interner owns the string-interning table for one compile/run. It is a
// plain struct rather than process-global state so that independent
// Compiler/VM pairs never share identity — two interpreters constructing
// the literal "abc" get two distinct *String objects, each internally
// consistent (Cmp on values born from the same Interner still compares
// by pointer in O(1)).
type Interner struct {
	table map[string]*String
}

func NewInterner() *Interner {
	return &Interner{table: make(map[string]*String)}
}

// Intern returns the canonical *String for s, creating and registering
// one on first sight. Two calls with the same content return the same
// pointer.
func (in *Interner) Intern(s string) *String {
	if existing, ok := in.table[s]; ok {
		return existing
	}
	str := &String{Data: s}
	in.table[s] = str
	return str
}

// Lookup reports whether s has already been interned, without creating
// an entry, and returns the canonical *String if so.
func (in *Interner) Lookup(s string) (*String, bool) {
	str, ok := in.table[s]
	return str, ok
}

package model

// Identifier types are opaque keys. They are checked once by Build (non-empty,
// unique, resolvable) and never interpreted afterwards.
type (
	BusID       string
	GeneratorID string
	RenewableID string
	StorageID   string
	LineID      string
)

func (id BusID) String() string       { return string(id) }
func (id GeneratorID) String() string { return string(id) }
func (id RenewableID) String() string { return string(id) }
func (id StorageID) String() string   { return string(id) }
func (id LineID) String() string      { return string(id) }

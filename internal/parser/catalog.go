package parser

import "strings"

// Name identifies a control command the model may emit.
type Name string

const (
	MemoryAppend        Name = "MemoryAppend"
	MemoryEdit          Name = "MemoryEdit"
	MemoryRemove        Name = "MemoryRemove"
	SendMessage         Name = "SendMessage"
	DeleteMessage       Name = "DeleteMessage"
	Punish              Name = "Punish"
	Forgive             Name = "Forgive"
	FetchURL            Name = "FetchURL"
	ClearLastURLContent Name = "ClearLastURLContent"
	CreateFile          Name = "CreateFile"
	GetFileInfo         Name = "GetFileInfo"
	TrackFile           Name = "TrackFile"
	ForgetFile          Name = "ForgetFile"
	CreateDirectory     Name = "CreateDirectory"
	TrackDirectory      Name = "TrackDirectory"
	ForgetDirectory     Name = "ForgetDirectory"
	Delete              Name = "Delete"
	Move                Name = "Move"
	Rename              Name = "Rename"
	AddToFile           Name = "AddToFile"
	ReplaceInFile       Name = "ReplaceInFile"
	RemoveFromFile      Name = "RemoveFromFile"
	RewriteFile         Name = "RewriteFile"
	ClearHistory        Name = "ClearHistory"
	Wait                Name = "Wait"
)

// Order is the execution-order class of a command.
type Order int

const (
	// OrderNormal commands run in discovery order.
	OrderNormal Order = iota
	// OrderPriority commands run before every normal command, last found first.
	OrderPriority
)

func (o Order) String() string {
	if o == OrderPriority {
		return "priority"
	}
	return "normal"
}

// Spec is one row of the command grammar table.
type Spec struct {
	Name    Name
	Arity   int
	Order   Order
	OneShot bool
}

// Wire-format delimiters.
const (
	OpenDelimiter      = "($$$$$"
	SeparatorDelimiter = "$$$$$, $$$$$"
	CloseDelimiter     = "$$$$$)"
)

// The table order matters: when two names start at the same offset the
// earlier row wins, so DeleteMessage shadows Delete.
var catalog = []Spec{
	{Name: MemoryAppend, Arity: 1},
	{Name: MemoryEdit, Arity: 2},
	{Name: MemoryRemove, Arity: 1},

	{Name: SendMessage, Arity: 2, OneShot: true},
	{Name: DeleteMessage, Arity: 1, Order: OrderPriority},
	{Name: Punish, Arity: 3},
	{Name: Forgive, Arity: 1},

	{Name: FetchURL, Arity: 1, OneShot: true},
	{Name: ClearLastURLContent, Arity: 0, Order: OrderPriority, OneShot: true},

	{Name: CreateFile, Arity: 2},
	{Name: GetFileInfo, Arity: 1},
	{Name: TrackFile, Arity: 1},
	{Name: ForgetFile, Arity: 1},
	{Name: CreateDirectory, Arity: 2},
	{Name: TrackDirectory, Arity: 1},
	{Name: ForgetDirectory, Arity: 1},
	{Name: Delete, Arity: 1},
	{Name: Move, Arity: 2},
	{Name: Rename, Arity: 2},
	{Name: AddToFile, Arity: 2},
	{Name: ReplaceInFile, Arity: 3},
	{Name: RemoveFromFile, Arity: 2},
	{Name: RewriteFile, Arity: 2},

	{Name: ClearHistory, Arity: 0, OneShot: true},
	{Name: Wait, Arity: 1, OneShot: true},
}

var index = func() map[Name]Spec {
	m := make(map[Name]Spec, len(catalog))
	for _, spec := range catalog {
		m[spec.Name] = spec
	}
	return m
}()

// Catalog returns a copy of the grammar table in scan-priority order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the grammar entry for name.
func Lookup(name Name) (Spec, bool) {
	spec, ok := index[name]
	return spec, ok
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

// Unescape expands the literal \n and \t sequences the model writes inside
// free-text arguments.
func Unescape(arg string) string {
	return unescaper.Replace(arg)
}

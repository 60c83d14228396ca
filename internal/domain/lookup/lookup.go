// Package lookup models the small reference tables requests point into.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Table string

const (
	TableFactory   Table = "factory"
	TableProject   Table = "project"
	TablePhase     Table = "phase"
	TableCategory  Table = "category"
	TableStatus    Table = "status"
	TableEquipment Table = "equipment"
)

var allTables = []Table{
	TableFactory,
	TableProject,
	TablePhase,
	TableCategory,
	TableStatus,
	TableEquipment,
}

func AllTables() []Table {
	out := make([]Table, len(allTables))
	copy(out, allTables)
	return out
}

func (t Table) String() string {
	return string(t)
}

func (t Table) IsValid() bool {
	for _, known := range allTables {
		if t == known {
			return true
		}
	}
	return false
}

func ParseTable(s string) (Table, error) {
	t := Table(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown lookup table: %s", s)
	}
	return t, nil
}

var (
	ErrEntryNotFound  = errors.New("lookup entry not found")
	ErrEntryExists    = errors.New("lookup entry already exists")
	ErrEquipmentInUse = errors.New("equipment is referenced by requests")
)

// Entry is one selectable value of a table. Inactive entries still resolve
// for display but are rejected as new references.
type Entry struct {
	Table   Table
	Code    string
	Label   string
	SortKey int
	Active  bool
}

func NewEntry(table Table, code, label string, sortKey int) (Entry, error) {
	if !table.IsValid() {
		return Entry{}, fmt.Errorf("unknown lookup table: %s", table)
	}
	code = strings.TrimSpace(code)
	label = strings.TrimSpace(label)
	if code == "" {
		return Entry{}, fmt.Errorf("code is required")
	}
	if len(code) > 64 {
		return Entry{}, fmt.Errorf("code exceeds maximum length of 64 characters")
	}
	if label == "" {
		label = code
	}
	return Entry{Table: table, Code: code, Label: label, SortKey: sortKey, Active: true}, nil
}

// SortEntries orders by sort key, then label, then code.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Code < b.Code
	})
}

const RecipeSlots = 5

// Equipment is a test chamber or fixture. Its lookup entry uses the control
// number as code and the name as label.
type Equipment struct {
	ControlNo string
	Name      string
	Spec      string
	Recipes   [RecipeSlots]string
	Remark    string
	Factory   string
	Active    bool
}

func NewEquipment(controlNo, name, factory string) (Equipment, error) {
	controlNo = strings.TrimSpace(controlNo)
	if controlNo == "" {
		return Equipment{}, fmt.Errorf("control number is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Equipment{}, fmt.Errorf("equipment name is required")
	}
	return Equipment{ControlNo: controlNo, Name: name, Factory: strings.TrimSpace(factory), Active: true}, nil
}

func (e Equipment) Entry() Entry {
	return Entry{
		Table:  TableEquipment,
		Code:   e.ControlNo,
		Label:  e.Name,
		Active: e.Active,
	}
}

type Repository interface {
	// ListEntries returns every entry of table, active or not.
	ListEntries(ctx context.Context, table Table) ([]Entry, error)
	GetEntry(ctx context.Context, table Table, code string) (*Entry, error)
	CreateEntry(ctx context.Context, entry Entry) error
	UpdateEntry(ctx context.Context, entry Entry) error

	ListEquipment(ctx context.Context, factory string) ([]Equipment, error)
	GetEquipment(ctx context.Context, controlNo string) (*Equipment, error)
	CreateEquipment(ctx context.Context, e Equipment) error
	UpdateEquipment(ctx context.Context, e Equipment) error
	DeleteEquipment(ctx context.Context, controlNo string) error
}

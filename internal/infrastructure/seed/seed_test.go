package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

const sample = `
version: 1
tables:
  factory:
    - {code: F1, label: Plant 1, sort_key: 1}
    - {code: F0, label: Old plant, inactive: true}
  status:
    - {code: Draft, sort_key: 1}
    - {code: Submitted, sort_key: 2}
equipment:
  - control_no: EQ-01
    name: Thermal chamber
    factory: F1
    recipes: [R1, R2]
`

type recordingWriter struct {
	entries   []lookup.Entry
	inactive  []string
	equipment []lookup.Equipment
	existing  map[string]bool
	fail      error
}

func (w *recordingWriter) AddEntry(_ context.Context, _ user.Actor, table lookup.Table, code, label string, sortKey int) error {
	if w.fail != nil {
		return w.fail
	}
	if w.existing[code] {
		return apperrors.NewConflictError(code + " already exists")
	}
	w.entries = append(w.entries, lookup.Entry{Table: table, Code: code, Label: label, SortKey: sortKey})
	return nil
}

func (w *recordingWriter) SetEntryActive(_ context.Context, _ user.Actor, table lookup.Table, code string, active bool) error {
	if !active {
		w.inactive = append(w.inactive, table.String()+"/"+code)
	}
	return nil
}

func (w *recordingWriter) AddEquipment(_ context.Context, _ user.Actor, e lookup.Equipment) error {
	if w.existing[e.ControlNo] {
		return apperrors.NewConflictError(e.ControlNo + " already exists")
	}
	w.equipment = append(w.equipment, e)
	return nil
}

var admin = user.Actor{UserID: 1, Username: "admin", Role: uvo.RoleSuper}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Len(t, f.Tables["factory"], 2)
	assert.True(t, f.Tables["factory"][1].Inactive)
	require.Len(t, f.Equipment, 1)
	assert.Equal(t, []string{"R1", "R2"}, f.Equipment[0].Recipes)

	tests := []struct {
		name string
		raw  string
	}{
		{"wrong version", "version: 2\n"},
		{"unknown table", "version: 1\ntables:\n  colour: []\n"},
		{"equipment as table", "version: 1\ntables:\n  equipment: []\n"},
		{"too many recipes", "version: 1\nequipment:\n  - {control_no: E, name: n, recipes: [a, b, c, d, e, f]}\n"},
		{"not yaml", "version: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Version)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrSeedNotFound)
}

func TestApply(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	w := &recordingWriter{existing: map[string]bool{"Draft": true}}

	report, err := Apply(context.Background(), w, admin, f, logger.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, Report{Added: 4, Existing: 1}, report)

	// tables are applied in lookup.AllTables order
	require.Len(t, w.entries, 3)
	assert.Equal(t, lookup.TableFactory, w.entries[0].Table)
	assert.Equal(t, "Submitted", w.entries[2].Code)
	assert.Equal(t, []string{"factory/F0"}, w.inactive)

	require.Len(t, w.equipment, 1)
	assert.Equal(t, "R2", w.equipment[0].Recipes[1])
	assert.Empty(t, w.equipment[0].Recipes[2])
}

func TestApplyStopsOnError(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	w := &recordingWriter{fail: errors.New("store down")}

	_, err = Apply(context.Background(), w, admin, f, logger.NewDiscard())
	assert.Error(t, err)
	assert.Empty(t, w.equipment)
}

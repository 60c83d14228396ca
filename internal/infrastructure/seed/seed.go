// Package seed loads lookup tables from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/domain/user"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

const supportedVersion = 1

var ErrSeedNotFound = errors.New("seed file not found")

type EntrySpec struct {
	Code     string `yaml:"code"`
	Label    string `yaml:"label"`
	SortKey  int    `yaml:"sort_key"`
	Inactive bool   `yaml:"inactive"`
}

type EquipmentSpec struct {
	ControlNo string   `yaml:"control_no"`
	Name      string   `yaml:"name"`
	Factory   string   `yaml:"factory"`
	Spec      string   `yaml:"spec"`
	Recipes   []string `yaml:"recipes"`
	Remark    string   `yaml:"remark"`
}

type File struct {
	Version   int                    `yaml:"version"`
	Tables    map[string][]EntrySpec `yaml:"tables"`
	Equipment []EquipmentSpec        `yaml:"equipment"`
}

// Writer is the lookup administration surface the seeder drives.
type Writer interface {
	AddEntry(ctx context.Context, actor user.Actor, table lookup.Table, code, label string, sortKey int) error
	SetEntryActive(ctx context.Context, actor user.Actor, table lookup.Table, code string, active bool) error
	AddEquipment(ctx context.Context, actor user.Actor, e lookup.Equipment) error
}

type Report struct {
	Added    int
	Existing int
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, path)
		}
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if f.Version != supportedVersion {
		return nil, fmt.Errorf("unsupported seed version: %d", f.Version)
	}
	for name := range f.Tables {
		t, err := lookup.ParseTable(name)
		if err != nil {
			return nil, err
		}
		if t == lookup.TableEquipment {
			return nil, fmt.Errorf("equipment goes in the top-level equipment list")
		}
	}
	for i, e := range f.Equipment {
		if len(e.Recipes) > lookup.RecipeSlots {
			return nil, fmt.Errorf("equipment %d (%s) has more than %d recipes", i, e.ControlNo, lookup.RecipeSlots)
		}
	}
	return &f, nil
}

// Apply adds every entry that is not already present. Existing entries are
// left as they are, so seeding twice is harmless.
func Apply(ctx context.Context, w Writer, actor user.Actor, f *File, log logger.Interface) (Report, error) {
	var report Report

	for _, table := range lookup.AllTables() {
		specs, ok := f.Tables[table.String()]
		if !ok {
			continue
		}
		for _, spec := range specs {
			err := w.AddEntry(ctx, actor, table, spec.Code, spec.Label, spec.SortKey)
			if apperrors.IsConflictError(err) {
				report.Existing++
				continue
			}
			if err != nil {
				return report, fmt.Errorf("%s %q: %w", table, spec.Code, err)
			}
			report.Added++
			if spec.Inactive {
				if err := w.SetEntryActive(ctx, actor, table, strings.TrimSpace(spec.Code), false); err != nil {
					return report, fmt.Errorf("%s %q: %w", table, spec.Code, err)
				}
			}
		}
	}

	for _, spec := range f.Equipment {
		eq := lookup.Equipment{
			ControlNo: spec.ControlNo,
			Name:      spec.Name,
			Factory:   spec.Factory,
			Spec:      spec.Spec,
			Remark:    spec.Remark,
		}
		copy(eq.Recipes[:], spec.Recipes)
		err := w.AddEquipment(ctx, actor, eq)
		if apperrors.IsConflictError(err) {
			report.Existing++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("equipment %q: %w", spec.ControlNo, err)
		}
		report.Added++
	}

	log.Infow("lookup seed applied", "added", report.Added, "existing", report.Existing)
	return report, nil
}

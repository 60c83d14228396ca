package mappers

import (
	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/infrastructure/persistence/models"
)

func LookupEntryToModel(e lookup.Entry) *models.LookupEntryModel {
	return &models.LookupEntryModel{
		LookupTable: e.Table.String(),
		Code:        e.Code,
		Label:       e.Label,
		SortKey:     e.SortKey,
		Active:      e.Active,
	}
}

func LookupEntryToDomain(m *models.LookupEntryModel) lookup.Entry {
	return lookup.Entry{
		Table:   lookup.Table(m.LookupTable),
		Code:    m.Code,
		Label:   m.Label,
		SortKey: m.SortKey,
		Active:  m.Active,
	}
}

func EquipmentToModel(e lookup.Equipment) *models.EquipmentModel {
	return &models.EquipmentModel{
		ControlNo: e.ControlNo,
		Name:      e.Name,
		Spec:      e.Spec,
		Recipe1:   e.Recipes[0],
		Recipe2:   e.Recipes[1],
		Recipe3:   e.Recipes[2],
		Recipe4:   e.Recipes[3],
		Recipe5:   e.Recipes[4],
		Remark:    e.Remark,
		Factory:   e.Factory,
		Active:    e.Active,
	}
}

func EquipmentToDomain(m *models.EquipmentModel) lookup.Equipment {
	return lookup.Equipment{
		ControlNo: m.ControlNo,
		Name:      m.Name,
		Spec:      m.Spec,
		Recipes:   [lookup.RecipeSlots]string{m.Recipe1, m.Recipe2, m.Recipe3, m.Recipe4, m.Recipe5},
		Remark:    m.Remark,
		Factory:   m.Factory,
		Active:    m.Active,
	}
}

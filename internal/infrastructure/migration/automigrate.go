package migration

import (
	"kreltrack/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.RequestModel{},
		&models.LookupEntryModel{},
		&models.EquipmentModel{},
		&models.UserModel{},
		&models.AuditLogModel{},
	}
}

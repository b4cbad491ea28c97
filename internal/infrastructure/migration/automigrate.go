package migration

import (
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.EntitlementModel{},
		&models.PaymentModel{},
		&models.PendingRequestModel{},
		&models.DeployedContractModel{},
	}
}

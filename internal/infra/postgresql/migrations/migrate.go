package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/relayforge/novu-bridge/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationLogsTable(),
	})

	return m.Migrate()
}

func createNotificationLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_subscriber_id ON notification_logs (subscriber_id) WHERE subscriber_id IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_workflow_id ON notification_logs (workflow_id) WHERE workflow_id IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_status ON notification_logs (status)`,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_occurred_at ON notification_logs (occurred_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_transaction_id ON notification_logs (transaction_id) WHERE transaction_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}

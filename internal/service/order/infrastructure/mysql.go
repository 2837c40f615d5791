// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"pedidos/internal/pkg/logger"
)

// OpenMysql 建立数据库连接并执行 schema 迁移。
// 隔离级别交给 InnoDB（默认 REPEATABLE READ，满足至少读已提交的要求）。
func OpenMysql(dsn string, maxOpen, maxIdle int) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access underlying sql.DB")
	}
	if maxOpen <= 0 {
		maxOpen = 50
	}
	if maxIdle <= 0 {
		maxIdle = 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&OrderModel{}, &OrderItemModel{}, &PaymentModel{}, &NotificationModel{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	logger.Logger.Info().Msg("connected to mysql and schema is up to date")
	return db, nil
}

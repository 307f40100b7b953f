package db

import (
	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vepbot/internal/auth"
	"vepbot/internal/contacts"
	"vepbot/internal/jobs"
	"vepbot/internal/templates"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&jobs.Job{},
		&jobs.Delivery{},
		&templates.Template{},
		&contacts.Contact{},
		&auth.User{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	stmts := []string{
		// candidate scan: status filter, execution order
		`create index if not exists idx_jobs_due on jobs(status, execution_time, id);`,
		`create index if not exists idx_deliveries_job on deliveries(job_id, id);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return errors.Wrapf(err, "index exec failed (sql=%s)", s)
		}
	}

	return nil
}

package bootstrap

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/enrollment"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/features/progress"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/internal/features/video"
	"github.com/iamabdullah-dev/EdTech/pkg/config"
	"github.com/iamabdullah-dev/EdTech/pkg/database/migrations"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&user.User{},
		&course.Course{},
		&video.Video{},
		&payment.Payment{},
		&enrollment.Enrollment{},
		&progress.CourseProgress{},
		&progress.VideoProgress{},
	}
}

// ApplyDatabaseMigrations runs database migrations when enabled via configuration.
func ApplyDatabaseMigrations(db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Database.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "EDTECH_DB_RUN_MIGRATIONS=false"))
		return nil
	}

	if err := Migrate(db, logger); err != nil {
		return err
	}

	logger.Info("database migrations applied successfully")
	return nil
}

// Migrate creates or updates every table and then applies the registered
// schema steps. It is safe to run repeatedly.
func Migrate(db *gorm.DB, logger *slog.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := migrations.Run(db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

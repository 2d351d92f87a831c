package bootstrap

import (
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/pkg/database/migrations"
)

func init() {
	migrations.Register(migrations.Migration{
		Name:     "users_role_check",
		Postgres: true,
		Fn: exec(
			`ALTER TABLE users DROP CONSTRAINT IF EXISTS chk_users_role`,
			`ALTER TABLE users ADD CONSTRAINT chk_users_role CHECK (role IN ('student', 'tutor'))`,
		),
	})
	migrations.Register(migrations.Migration{
		Name:     "payments_status_check",
		Postgres: true,
		Fn: exec(
			`ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_status`,
			`ALTER TABLE payments ADD CONSTRAINT chk_payments_status
				CHECK (status IN ('pending', 'completed', 'failed', 'needs_review'))`,
		),
	})
	migrations.Register(migrations.Migration{
		Name:     "payments_pending_created_index",
		Postgres: true,
		Fn: exec(
			`CREATE INDEX IF NOT EXISTS idx_payments_pending_created
				ON payments (created_at) WHERE status = 'pending'`,
		),
	})
	migrations.Register(migrations.Migration{
		Name:     "video_progress_completed_index",
		Postgres: true,
		Fn: exec(
			`CREATE INDEX IF NOT EXISTS idx_video_progress_completed
				ON video_progress (enrollment_id) WHERE is_completed`,
		),
	})
	migrations.Register(migrations.Migration{
		Name: "videos_course_order_index",
		Fn: exec(
			`CREATE INDEX IF NOT EXISTS idx_videos_course_order ON videos (course_id, sequence_order)`,
		),
	})
}

func exec(statements ...string) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		for _, stmt := range statements {
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	}
}

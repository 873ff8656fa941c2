package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'violation_status') THEN
			CREATE TYPE violation_status AS ENUM (
				'PENDING', 'APPROVED_WALI', 'APPROVED_BK', 'REJECTED',
				'APPEALED', 'APPEAL_APPROVED', 'APPEAL_REJECTED'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'category_severity') THEN
			CREATE TYPE category_severity AS ENUM ('RINGAN', 'SEDANG', 'BERAT');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'rejection_level') THEN
			CREATE TYPE rejection_level AS ENUM ('WALIKELAS', 'BK');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'appeal_outcome') THEN
			CREATE TYPE appeal_outcome AS ENUM ('PENDING', 'APPROVED', 'REJECTED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS violations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		student_id UUID NOT NULL,
		student_name VARCHAR(100) NOT NULL,
		student_nisn VARCHAR(20) NOT NULL,
		student_class VARCHAR(20) NOT NULL,
		category_id UUID NOT NULL,
		category_code VARCHAR(64) NOT NULL,
		category_name VARCHAR(200) NOT NULL,
		category_severity category_severity NOT NULL,
		points INT NOT NULL,
		description TEXT NOT NULL,
		location VARCHAR(200),
		evidence_urls JSONB,
		witness_name VARCHAR(100),
		witness_statement TEXT,
		violation_date TIMESTAMPTZ NOT NULL,
		violation_time VARCHAR(5),
		academic_year VARCHAR(9) NOT NULL,
		semester INT NOT NULL,
		status violation_status NOT NULL DEFAULT 'PENDING',
		wali_approved_at TIMESTAMPTZ,
		wali_approved_by UUID,
		wali_approved_by_name VARCHAR(100),
		wali_notes VARCHAR(500),
		bk_approved_at TIMESTAMPTZ,
		bk_approved_by UUID,
		bk_approved_by_name VARCHAR(100),
		bk_notes VARCHAR(500),
		sanction VARCHAR(500),
		sanction_start_date TIMESTAMPTZ,
		sanction_end_date TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		rejected_by UUID,
		rejected_by_name VARCHAR(100),
		rejection_reason VARCHAR(500),
		rejection_level rejection_level,
		appeal_reason VARCHAR(1000),
		appealed_at TIMESTAMPTZ,
		appealed_by UUID,
		appeal_status appeal_outcome,
		appeal_notes VARCHAR(500),
		appeal_reviewed_at TIMESTAMPTZ,
		appeal_reviewed_by UUID,
		appeal_reviewed_by_name VARCHAR(100),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		deleted_at TIMESTAMPTZ,
		reported_by UUID NOT NULL,
		reported_by_name VARCHAR(100) NOT NULL,
		reporter_role VARCHAR(32) NOT NULL,
		created_by UUID NOT NULL,
		updated_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_student_id ON violations (student_id);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_status ON violations (status);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_academic_year ON violations (academic_year);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_violation_date ON violations (violation_date);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_deleted_at ON violations (deleted_at);`,
	`CREATE TABLE IF NOT EXISTS violation_approval_history (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		violation_id UUID NOT NULL REFERENCES violations(id) ON DELETE CASCADE,
		action VARCHAR(32) NOT NULL,
		from_status violation_status NOT NULL,
		to_status violation_status NOT NULL,
		actor_id UUID NOT NULL,
		actor_name VARCHAR(100) NOT NULL,
		actor_role VARCHAR(32) NOT NULL,
		notes TEXT,
		action_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_approval_history_violation_id ON violation_approval_history (violation_id);`,
	`CREATE INDEX IF NOT EXISTS idx_approval_history_action_date ON violation_approval_history (action_date);`,
}

func runMigrations(database *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := database.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}

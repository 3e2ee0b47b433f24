package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_directory", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_points", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_attendance", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "attendance_ledger_delta", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS teachers (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    user_id BIGINT NOT NULL,
    fullname VARCHAR(255) NOT NULL,
    phone_number VARCHAR(255) NOT NULL,
    address TEXT,
    subject VARCHAR(255) NOT NULL,
    hire_date DATE NOT NULL,
    CONSTRAINT teachers_user_id_key UNIQUE (user_id)
);

CREATE TABLE IF NOT EXISTS grades (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    name VARCHAR(255) NOT NULL,
    homeroom_teacher_id BIGINT REFERENCES teachers(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_grades_homeroom ON grades(homeroom_teacher_id);

-- Deleting a grade with students fails with a foreign key violation.
CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    user_id BIGINT NOT NULL,
    fullname VARCHAR(255) NOT NULL,
    grade_id BIGINT NOT NULL REFERENCES grades(id) ON DELETE RESTRICT,
    birth_date DATE NOT NULL,
    address TEXT NOT NULL,
    phone_number VARCHAR(255),
    image VARCHAR(255),
    CONSTRAINT students_user_id_key UNIQUE (user_id)
);

CREATE INDEX IF NOT EXISTS idx_students_grade ON students(grade_id);

CREATE TABLE IF NOT EXISTS targets (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    description TEXT NOT NULL,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    CONSTRAINT valid_target_status CHECK (status IN ('active', 'completed', 'cancelled')),
    CONSTRAINT valid_target_period CHECK (end_date >= start_date)
);

CREATE TABLE IF NOT EXISTS faqs (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    question TEXT NOT NULL,
    answer TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    name VARCHAR(255) NOT NULL,
    phone_email VARCHAR(255) NOT NULL,
    role VARCHAR(255) NOT NULL
);
`

const migration001Down = `
DROP TABLE IF EXISTS contacts;
DROP TABLE IF EXISTS faqs;
DROP TABLE IF EXISTS targets;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS grades;
DROP TABLE IF EXISTS teachers;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: RULES, LEDGER, DISCIPLINE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS rules (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    type VARCHAR(20) NOT NULL,
    name VARCHAR(255) NOT NULL,
    points INTEGER NOT NULL,
    description TEXT,
    CONSTRAINT valid_rule_type CHECK (type IN ('reward', 'punishment'))
);

CREATE UNIQUE INDEX IF NOT EXISTS rules_name_key ON rules(lower(name));

CREATE TABLE IF NOT EXISTS student_points (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    student_id BIGINT NOT NULL UNIQUE REFERENCES students(id) ON DELETE CASCADE,
    total_points INTEGER NOT NULL DEFAULT 0,
    last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_student_points_total ON student_points(total_points DESC);

-- rules_id and given_by carry no foreign key: logs outlive deleted rules
-- and teachers, and reversal skips a missing rule.
CREATE TABLE IF NOT EXISTS discipline_logs (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    rules_id BIGINT NOT NULL,
    date DATE NOT NULL,
    given_by BIGINT NOT NULL,
    remarks TEXT,
    status VARCHAR(10) NOT NULL DEFAULT 'DONE',
    CONSTRAINT valid_log_status CHECK (status IN ('DONE', 'PENDING'))
);

CREATE INDEX IF NOT EXISTS idx_discipline_logs_student_date ON discipline_logs(student_id, date);
CREATE INDEX IF NOT EXISTS idx_discipline_logs_pending ON discipline_logs(student_id, rules_id, date) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS discipline_records (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    teacher_id BIGINT NOT NULL,
    rule_id BIGINT REFERENCES rules(id) ON DELETE SET NULL,
    type VARCHAR(20) NOT NULL,
    description TEXT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    given_date DATE NOT NULL,
    notes TEXT,
    CONSTRAINT valid_record_type CHECK (type IN ('reward', 'punishment')),
    CONSTRAINT valid_record_status CHECK (status IN ('pending', 'done', 'cancelled'))
);

CREATE INDEX IF NOT EXISTS idx_discipline_records_teacher ON discipline_records(teacher_id, status);
CREATE INDEX IF NOT EXISTS idx_discipline_records_student_date ON discipline_records(student_id, given_date);
`

const migration002Down = `
DROP TABLE IF EXISTS discipline_records;
DROP TABLE IF EXISTS discipline_logs;
DROP TABLE IF EXISTS student_points;
DROP TABLE IF EXISTS rules;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS attendances (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    student_id BIGINT REFERENCES students(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL,
    date DATE NOT NULL,
    status VARCHAR(20) NOT NULL,
    remarks TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT valid_attendance_status CHECK (status IN ('present', 'late', 'excused', 'absent'))
);

-- One row per student per day; administrators (no student) per user per day.
CREATE UNIQUE INDEX IF NOT EXISTS attendances_student_date_key
    ON attendances(student_id, date) WHERE student_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS attendances_user_date_key
    ON attendances(user_id, date) WHERE student_id IS NULL;

CREATE INDEX IF NOT EXISTS idx_attendances_date ON attendances(date);

CREATE TABLE IF NOT EXISTS attendance_journals (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    attendance_id BIGINT NOT NULL REFERENCES attendances(id) ON DELETE CASCADE,
    note TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attendance_journals_attendance ON attendance_journals(attendance_id);

CREATE TABLE IF NOT EXISTS attendance_media (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
    attendance_id BIGINT NOT NULL REFERENCES attendances(id) ON DELETE CASCADE,
    path VARCHAR(512) NOT NULL,
    filename VARCHAR(255) NOT NULL,
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_media_attendance ON attendance_media(attendance_id);
`

const migration003Down = `
DROP TABLE IF EXISTS attendance_media;
DROP TABLE IF EXISTS attendance_journals;
DROP TABLE IF EXISTS attendances;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: ATTENDANCE LEDGER DELTA
// ══════════════════════════════════════════════════════════════════════════════

// ledger_delta is the part of the attendance outcome still held by the
// ledger. Deleting the automatic log or cancelling the late record under a
// restoring policy lowers it; rollback reverses what is left.
const migration004Up = `
ALTER TABLE attendances ADD COLUMN IF NOT EXISTS ledger_delta INT NOT NULL DEFAULT 0;
`

const migration004Down = `
ALTER TABLE attendances DROP COLUMN IF EXISTS ledger_delta;
`

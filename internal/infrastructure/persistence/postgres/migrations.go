// Package postgres implements the PostgreSQL persistence layer for Campus Pulse.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create attendance tables
-- Version: 001

-- Append-only attendance event log. Ordering per (student, subject) is
-- enforced by the application; the index supports the per-pair scan.
CREATE TABLE IF NOT EXISTS attendance_events (
    id BIGSERIAL PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    subject_id VARCHAR(64) NOT NULL,
    present BOOLEAN NOT NULL,
    check_in_at TIMESTAMP WITH TIME ZONE NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, subject_id, check_in_at)
);

CREATE INDEX IF NOT EXISTS idx_attendance_events_student ON attendance_events(student_id, check_in_at);
CREATE INDEX IF NOT EXISTS idx_attendance_events_pair ON attendance_events(student_id, subject_id, check_in_at DESC);
CREATE INDEX IF NOT EXISTS idx_attendance_events_subject ON attendance_events(subject_id);
`

const migration001Down = `
DROP TABLE IF EXISTS attendance_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create gamification tables
-- Version: 002

-- One XP ledger per student.
CREATE TABLE IF NOT EXISTS xp_ledgers (
    student_id VARCHAR(64) PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    attained_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

CREATE INDEX IF NOT EXISTS idx_xp_ledgers_total_xp ON xp_ledgers(total_xp DESC);

-- Unlocked achievements. The unique pair makes unlocks idempotent.
CREATE TABLE IF NOT EXISTS achievements (
    id BIGSERIAL PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    achievement_id VARCHAR(50) NOT NULL,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(student_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_achievements_student ON achievements(student_id);
CREATE INDEX IF NOT EXISTS idx_achievements_earned_at ON achievements(earned_at DESC);

-- Quiz statistics outlive the sessions they come from: sessions are
-- evicted after the review retention window, these counters are not.
CREATE TABLE IF NOT EXISTS quiz_stats (
    student_id VARCHAR(64) PRIMARY KEY,
    quizzes_taken INTEGER NOT NULL DEFAULT 0,
    perfect_quizzes INTEGER NOT NULL DEFAULT 0,
    questions_answered INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration002Down = `
DROP TABLE IF EXISTS quiz_stats;
DROP TABLE IF EXISTS achievements;
DROP TABLE IF EXISTS xp_ledgers;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create challenge tables
-- Version: 003

-- Challenge sessions. Questions and answers are stored as JSONB: a
-- session is read and written whole, never queried by question.
CREATE TABLE IF NOT EXISTS challenge_sessions (
    id UUID PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    questions JSONB NOT NULL,
    answers JSONB NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_seconds INTEGER NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'active',
    completed_at TIMESTAMP WITH TIME ZONE,
    xp_per_correct INTEGER NOT NULL,

    CONSTRAINT valid_state CHECK (state IN ('active', 'submitted', 'expired'))
);

CREATE INDEX IF NOT EXISTS idx_challenge_sessions_student ON challenge_sessions(student_id);
CREATE INDEX IF NOT EXISTS idx_challenge_sessions_active ON challenge_sessions(state) WHERE state = 'active';
CREATE INDEX IF NOT EXISTS idx_challenge_sessions_completed ON challenge_sessions(completed_at) WHERE completed_at IS NOT NULL;

-- Question bank for new sessions.
CREATE TABLE IF NOT EXISTS challenge_questions (
    id VARCHAR(64) PRIMARY KEY,
    category VARCHAR(30) NOT NULL,
    difficulty VARCHAR(10) NOT NULL,
    prompt TEXT NOT NULL,
    options JSONB NOT NULL,
    correct_index INTEGER NOT NULL,

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('easy', 'medium', 'hard'))
);

CREATE INDEX IF NOT EXISTS idx_challenge_questions_category ON challenge_questions(category);
`

const migration003Down = `
DROP TABLE IF EXISTS challenge_questions;
DROP TABLE IF EXISTS challenge_sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE LEADERBOARD AND STUDY GROUPS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create leaderboard and study group tables
-- Version: 004

-- Leaderboard snapshots per period for historical tracking.
CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
    id UUID PRIMARY KEY,
    period VARCHAR(20) NOT NULL,
    snapshot_at TIMESTAMP WITH TIME ZONE NOT NULL,
    total_students INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_period CHECK (period IN ('daily', 'weekly', 'all_time'))
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_snapshots_period_at ON leaderboard_snapshots(period, snapshot_at DESC);

-- Entries for each snapshot, one row per ranked student.
CREATE TABLE IF NOT EXISTS leaderboard_entries (
    id BIGSERIAL PRIMARY KEY,
    snapshot_id UUID NOT NULL REFERENCES leaderboard_snapshots(id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    student_id VARCHAR(64) NOT NULL,
    xp INTEGER NOT NULL,
    level INTEGER NOT NULL,
    attained_at TIMESTAMP WITH TIME ZONE NOT NULL,
    rank_change INTEGER NOT NULL DEFAULT 0,
    change_known BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(snapshot_id, student_id),
    UNIQUE(snapshot_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_snapshot_rank ON leaderboard_entries(snapshot_id, rank);
CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_student ON leaderboard_entries(student_id);

-- Study groups.
CREATE TABLE IF NOT EXISTS study_groups (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    subject VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    capacity INTEGER NOT NULL,
    schedule VARCHAR(200) NOT NULL DEFAULT '',
    location VARCHAR(200) NOT NULL DEFAULT '',
    level VARCHAR(20) NOT NULL,
    is_online BOOLEAN NOT NULL DEFAULT FALSE,
    tags TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_capacity CHECK (capacity >= 1),
    CONSTRAINT valid_group_level CHECK (level IN ('beginner', 'intermediate', 'advanced'))
);

CREATE INDEX IF NOT EXISTS idx_study_groups_subject ON study_groups(subject);
CREATE INDEX IF NOT EXISTS idx_study_groups_level ON study_groups(level);

-- Group membership. The unique pair rejects double joins.
CREATE TABLE IF NOT EXISTS study_group_members (
    id BIGSERIAL PRIMARY KEY,
    group_id VARCHAR(64) NOT NULL REFERENCES study_groups(id) ON DELETE CASCADE,
    student_id VARCHAR(64) NOT NULL,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(group_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_study_group_members_group ON study_group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_study_group_members_student ON study_group_members(student_id);
`

const migration004Down = `
DROP TABLE IF EXISTS study_group_members;
DROP TABLE IF EXISTS study_groups;
DROP TABLE IF EXISTS leaderboard_entries;
DROP TABLE IF EXISTS leaderboard_snapshots;
`

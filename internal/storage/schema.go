package storage

// Timestamps are stored as Unix nanoseconds so that due-time comparisons
// happen on integers rather than on formatted strings.
const schema = `
-- Accounts own questions and sources.
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

-- The 'sources' table tracks where imported questions came from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id TEXT NOT NULL,
    path TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned INTEGER,

    UNIQUE(account_id, path),
    FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

-- The 'questions' table stores each question together with its review schedule.
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    question_text TEXT NOT NULL,
    answer_md TEXT NOT NULL DEFAULT '',
    difficulty INTEGER NOT NULL DEFAULT 3 CHECK (difficulty BETWEEN 1 AND 5),
    source TEXT NOT NULL DEFAULT '',
    is_flagged INTEGER NOT NULL DEFAULT 0,

    review_count INTEGER NOT NULL DEFAULT 0 CHECK (review_count >= 0),
    mastery_score REAL NOT NULL DEFAULT 0 CHECK (mastery_score BETWEEN 0 AND 1),
    interval_ns INTEGER NOT NULL DEFAULT 0,
    next_review_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    source_id INTEGER,
    content_hash TEXT,

    FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE,
    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_questions_account_due ON questions(account_id, next_review_at);
CREATE INDEX IF NOT EXISTS idx_questions_account_updated ON questions(account_id, updated_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_source_hash ON questions(source_id, content_hash) WHERE source_id IS NOT NULL;

-- Tag names are normalized (trimmed, lower-cased) before they are stored.
CREATE TABLE IF NOT EXISTS question_tags (
    question_id TEXT NOT NULL,
    tag TEXT NOT NULL,

    PRIMARY KEY(question_id, tag),
    FOREIGN KEY(question_id) REFERENCES questions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag);
`

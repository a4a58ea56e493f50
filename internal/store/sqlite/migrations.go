package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL UNIQUE,
    provider    TEXT NOT NULL DEFAULT 'gmail',
    connected   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subscriptions (
    account_id  TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    history_id  INTEGER NOT NULL,
    expiration  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    account_id        TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    thread_id         TEXT NOT NULL,
    title             TEXT NOT NULL,
    description       TEXT,
    priority          TEXT,
    business_category TEXT,
    due_date          TEXT,
    category          TEXT NOT NULL,
    confidence        REAL NOT NULL DEFAULT 0,
    reason            TEXT,
    created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (account_id, thread_id)
);

CREATE TABLE IF NOT EXISTS drafts (
    account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    thread_id   TEXT NOT NULL,
    subject     TEXT NOT NULL,
    body        TEXT NOT NULL,
    to_addr     TEXT NOT NULL,
    cc_addrs    TEXT,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (account_id, thread_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category);
CREATE INDEX IF NOT EXISTS idx_subscriptions_expiration ON subscriptions(expiration);
`

package store

const postgresSchema = `
CREATE TABLE IF NOT EXISTS source (
    id      BIGSERIAL PRIMARY KEY,
    title   TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    url     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS forward_index (
    doc_id  BIGINT PRIMARY KEY,
    title   TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    url     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS inverted_index (
    term   VARCHAR(255) NOT NULL,
    doc_id BIGINT NOT NULL,
    weight INTEGER NOT NULL,
    url    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_inverted_term ON inverted_index(term);

CREATE TABLE IF NOT EXISTS users (
    name          VARCHAR(255) PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS source (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    title   TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    url     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS forward_index (
    doc_id  INTEGER PRIMARY KEY,
    title   TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    url     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS inverted_index (
    term   VARCHAR(255) NOT NULL,
    doc_id INTEGER NOT NULL,
    weight INTEGER NOT NULL,
    url    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_inverted_term ON inverted_index(term);

CREATE TABLE IF NOT EXISTS users (
    name          VARCHAR(255) PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

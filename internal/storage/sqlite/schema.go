// ABOUTME: SQLite database schema for docchat storage
// ABOUTME: History entries, embedded document chunks and the index's embedding space
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Conversation history; seq is the store-assigned total order
CREATE TABLE IF NOT EXISTS history (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- Embedded document chunks; seq is insertion order
CREATE TABLE IF NOT EXISTS chunks (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    session_id TEXT NOT NULL,
    document_ref TEXT NOT NULL,
    document_name TEXT NOT NULL DEFAULT '',
    sequence_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME NOT NULL
);

-- Embedding space singleton; every vector in chunks belongs to it
CREATE TABLE IF NOT EXISTS index_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    model TEXT NOT NULL,
    dimension INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(session_id, document_ref);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1

package protocol

// SchemaDDL defines the SQLite schema for the traffic journal.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Every envelope that crossed the bridge, in either direction
CREATE TABLE IF NOT EXISTS envelopes (
    id INTEGER PRIMARY KEY,
    session TEXT NOT NULL,
    direction TEXT NOT NULL CHECK (direction IN ('in', 'out')),
    tag TEXT NOT NULL,
    serial INTEGER NOT NULL,
    data TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS envelopes_session ON envelopes(session, id);
`

package storage

// Database schema queries.
const (
	queryCreateSessionsTable = `CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		project TEXT,
		client TEXT,
		title TEXT,
		start_time TEXT,
		end_time TEXT,
		duration_minutes INTEGER DEFAULT 0,
		exchange_count INTEGER DEFAULT 0,
		has_compaction INTEGER DEFAULT 0,
		parse_errors INTEGER DEFAULT 0,
		source_path TEXT
	)`

	// One full-text document per exchange, so a hit can cite the exchange
	// it matched in.
	queryCreateContentTable = `CREATE VIRTUAL TABLE IF NOT EXISTS session_content USING fts5(
		session_id UNINDEXED,
		exchange_seq UNINDEXED,
		content
	)`

	queryCreateToolsTable = `CREATE TABLE IF NOT EXISTS session_tools (
		session_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		use_count INTEGER NOT NULL,
		PRIMARY KEY (session_id, tool_name)
	)`

	queryCreateAgentsTable = `CREATE TABLE IF NOT EXISTS session_agents (
		session_id TEXT NOT NULL,
		exchange_seq INTEGER NOT NULL,
		agent_type TEXT NOT NULL
	)`

	queryCreateTopicsTable = `CREATE TABLE IF NOT EXISTS session_topics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		source TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`

	queryCreateFingerprintsTable = `CREATE TABLE IF NOT EXISTS index_fingerprints (
		session_id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		indexed_at TEXT NOT NULL
	)`

	queryCreateIndexSessionsProject = `CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project)`
	queryCreateIndexSessionsClient  = `CREATE INDEX IF NOT EXISTS idx_sessions_client ON sessions(client)`
	queryCreateIndexSessionsStart   = `CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time)`
	queryCreateIndexToolsName       = `CREATE INDEX IF NOT EXISTS idx_tools_name ON session_tools(tool_name)`
	queryCreateIndexAgentsSession   = `CREATE INDEX IF NOT EXISTS idx_agents_session ON session_agents(session_id)`
	queryCreateIndexTopicsSession   = `CREATE INDEX IF NOT EXISTS idx_topics_session ON session_topics(session_id)`

	queryDeleteSession      = `DELETE FROM sessions WHERE session_id = ?`
	queryDeleteContent      = `DELETE FROM session_content WHERE session_id = ?`
	queryDeleteTools        = `DELETE FROM session_tools WHERE session_id = ?`
	queryDeleteAgents       = `DELETE FROM session_agents WHERE session_id = ?`
	queryDeleteFingerprint  = `DELETE FROM index_fingerprints WHERE session_id = ?`

	queryInsertSession = `INSERT INTO sessions
		(session_id, project, client, title, start_time, end_time, duration_minutes,
		 exchange_count, has_compaction, parse_errors, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertContent     = `INSERT INTO session_content (session_id, exchange_seq, content) VALUES (?, ?, ?)`
	queryInsertTool        = `INSERT INTO session_tools (session_id, tool_name, use_count) VALUES (?, ?, ?)`
	queryInsertAgent       = `INSERT INTO session_agents (session_id, exchange_seq, agent_type) VALUES (?, ?, ?)`
	queryInsertTopic       = `INSERT INTO session_topics (session_id, topic, source, captured_at) VALUES (?, ?, ?, ?)`
	queryInsertFingerprint = `INSERT INTO index_fingerprints (session_id, fingerprint, indexed_at) VALUES (?, ?, ?)`

	querySelectFingerprint  = `SELECT fingerprint FROM index_fingerprints WHERE session_id = ?`
	querySelectFingerprints = `SELECT session_id, fingerprint FROM index_fingerprints`
	querySelectIndexedAt    = `SELECT indexed_at FROM index_fingerprints WHERE session_id = ?`

	querySelectSession = `SELECT session_id, project, client, title, start_time, end_time,
		duration_minutes, exchange_count, has_compaction, parse_errors, source_path
		FROM sessions WHERE session_id = ?`

	queryResolvePrefix = `SELECT session_id FROM sessions WHERE session_id LIKE ? ORDER BY session_id LIMIT 1`

	querySearch = `SELECT c.session_id, c.exchange_seq,
			snippet(session_content, 2, '>>>', '<<<', '...', 24),
			bm25(session_content),
			s.project, s.client, s.title, s.start_time, s.duration_minutes,
			s.exchange_count, s.has_compaction
		FROM session_content c
		JOIN sessions s ON s.session_id = c.session_id
		WHERE session_content MATCH ?`

	querySelectTopics = `SELECT session_id, topic, source, captured_at
		FROM session_topics WHERE session_id = ? ORDER BY captured_at, id`

	queryCountSessions  = `SELECT COUNT(*) FROM sessions`
	queryCountExchanges = `SELECT COALESCE(SUM(exchange_count), 0) FROM sessions`
	queryCountTopics    = `SELECT COUNT(*) FROM session_topics`
	queryCountTools     = `SELECT COUNT(DISTINCT tool_name) FROM session_tools`
	queryCountAgents    = `SELECT COUNT(DISTINCT agent_type) FROM session_agents`
	queryDateRange      = `SELECT COALESCE(MIN(start_time), ''), COALESCE(MAX(start_time), '') FROM sessions`
	queryGroupByProject = `SELECT COALESCE(project, ''), COUNT(*) FROM sessions GROUP BY project ORDER BY COUNT(*) DESC`

	queryTopTools = `SELECT tool_name, SUM(use_count), COUNT(DISTINCT session_id)
		FROM session_tools GROUP BY tool_name ORDER BY SUM(use_count) DESC LIMIT ?`

	queryToolSessions = `SELECT s.session_id, s.title, s.start_time, st.tool_name, st.use_count
		FROM session_tools st
		JOIN sessions s ON s.session_id = st.session_id
		WHERE st.tool_name LIKE ?
		ORDER BY st.use_count DESC LIMIT ?`
)

package store

// Schema. Text-heavy fields live on source_events directly; list-valued
// fields are stored as JSON text. event_dates is a child table so date
// queries stay relational.
const schema = `
CREATE TABLE IF NOT EXISTS source_events (
	id TEXT PRIMARY KEY,
	source_code TEXT NOT NULL,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL,
	title_normalized TEXT NOT NULL,
	short_description TEXT,
	description TEXT,
	highlights TEXT,
	location_name TEXT,
	location_city TEXT,
	location_city_normalized TEXT,
	location_district TEXT,
	location_street TEXT,
	location_zipcode TEXT,
	geo_latitude REAL,
	geo_longitude REAL,
	geo_confidence REAL,
	categories TEXT,
	is_family_event INTEGER,
	is_child_focused INTEGER,
	admission_free INTEGER,
	blocking_keys TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_source_events_source ON source_events(source_code);

CREATE TABLE IF NOT EXISTS event_dates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL REFERENCES source_events(id) ON DELETE CASCADE,
	date TEXT NOT NULL,
	start_time TEXT,
	end_time TEXT,
	end_date TEXT
);
CREATE INDEX IF NOT EXISTS idx_event_dates_event ON event_dates(event_id);
CREATE INDEX IF NOT EXISTS idx_event_dates_date ON event_dates(date);

CREATE TABLE IF NOT EXISTS file_ingestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL,
	source_code TEXT,
	records_total INTEGER NOT NULL,
	records_accepted INTEGER NOT NULL,
	records_rejected INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS canonical_events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	short_description TEXT,
	description TEXT,
	highlights TEXT,
	location_name TEXT,
	location_city TEXT,
	location_district TEXT,
	location_street TEXT,
	location_zipcode TEXT,
	geo_latitude REAL,
	geo_longitude REAL,
	geo_confidence REAL,
	categories TEXT,
	is_family_event INTEGER,
	is_child_focused INTEGER,
	admission_free INTEGER,
	dates TEXT,
	source_count INTEGER NOT NULL,
	match_confidence REAL,
	needs_review INTEGER NOT NULL DEFAULT 0,
	ai_assisted INTEGER NOT NULL DEFAULT 0,
	first_date TEXT,
	last_date TEXT,
	provenance TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_canonical_events_review ON canonical_events(needs_review);

CREATE TABLE IF NOT EXISTS canonical_event_sources (
	canonical_id TEXT NOT NULL REFERENCES canonical_events(id) ON DELETE CASCADE,
	source_event_id TEXT NOT NULL REFERENCES source_events(id),
	UNIQUE(canonical_id, source_event_id)
);
CREATE INDEX IF NOT EXISTS idx_ces_source ON canonical_event_sources(source_event_id);

CREATE TABLE IF NOT EXISTS match_decisions (
	event_id_a TEXT NOT NULL,
	event_id_b TEXT NOT NULL,
	date_score REAL NOT NULL,
	geo_score REAL NOT NULL,
	title_score REAL NOT NULL,
	description_score REAL NOT NULL,
	combined_score REAL NOT NULL,
	decision TEXT NOT NULL,
	tier TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(event_id_a, event_id_b),
	CHECK(event_id_a < event_id_b)
);
CREATE INDEX IF NOT EXISTS idx_match_decisions_decision ON match_decisions(decision);

CREATE TABLE IF NOT EXISTS ai_match_cache (
	pair_hash TEXT NOT NULL UNIQUE,
	model TEXT NOT NULL,
	verdict TEXT NOT NULL,
	confidence REAL NOT NULL,
	reasoning TEXT,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ai_usage_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	pair_hash TEXT NOT NULL,
	model TEXT,
	tokens_in INTEGER NOT NULL DEFAULT 0,
	tokens_out INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	was_cached INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ai_usage_batch ON ai_usage_log(batch_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action TEXT NOT NULL,
	canonical_id TEXT,
	source_id TEXT,
	operator TEXT,
	details TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ground_truth_pairs (
	event_id_a TEXT NOT NULL,
	event_id_b TEXT NOT NULL,
	label TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(event_id_a, event_id_b),
	CHECK(event_id_a < event_id_b)
);
`

func (s *Store) initialize() error {
	_, err := s.db.Exec(schema)
	return err
}

package database

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	hashed_password BYTEA NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Rows are ordered by (event_time, event_id) so that keyset reads in the
// scoring engine follow the primary key.
const clickHouseSchema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	event_id    String,
	event_type  LowCardinality(String),
	event_time  DateTime64(3, 'UTC'),
	session_id  String,
	anon_id     String,
	user_id     Nullable(Int64),
	page_path   String,
	page_title  String,
	referrer    String,
	properties  String,
	user_agent  String,
	device_type LowCardinality(String),
	ip_address  String,
	created_at  DateTime64(3, 'UTC')
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(event_time)
ORDER BY (event_time, event_id)
`

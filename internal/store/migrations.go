package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Foreign keys are declared but foreign_keys stays off: responses and
// notification records must survive their prompt being replaced or removed.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prompts (
	uuid                           TEXT PRIMARY KEY,
	promptText                     TEXT NOT NULL DEFAULT '',
	responseType                   TEXT NOT NULL,
	notificationConfig_days        TEXT NOT NULL DEFAULT '{}',
	notificationConfig_startTime   TEXT NOT NULL DEFAULT '',
	notificationConfig_endTime     TEXT NOT NULL DEFAULT '',
	notificationConfig_countPerDay INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS prompt_responses (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	promptUuid        TEXT NOT NULL,
	triggerTimestamp  INTEGER NOT NULL,
	responseTimestamp INTEGER NOT NULL,
	value             TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (promptUuid) REFERENCES prompts(uuid)
);

CREATE TABLE IF NOT EXISTS prompt_notifications (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	promptUuid     TEXT NOT NULL,
	notificationId TEXT NOT NULL,
	FOREIGN KEY (promptUuid) REFERENCES prompts(uuid)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_prompt_notifications_notification_id
	ON prompt_notifications(notificationId);

CREATE INDEX IF NOT EXISTS idx_prompt_notifications_prompt
	ON prompt_notifications(promptUuid);

CREATE INDEX IF NOT EXISTS idx_prompt_responses_prompt_trigger
	ON prompt_responses(promptUuid, triggerTimestamp);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE prompt_notifications ADD COLUMN presentedAt INTEGER NOT NULL DEFAULT 0;

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}

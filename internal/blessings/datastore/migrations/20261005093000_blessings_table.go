package migrations

func init() {
	m := &migration{
		id: "20261005093000_blessings_table",
		up: map[string][]string{
			Postgres: {`
				CREATE TABLE blessings (
					id BIGSERIAL PRIMARY KEY,
					message VARCHAR(60) NOT NULL
				)`,
			},
			SQLite3: {`
				CREATE TABLE blessings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					message VARCHAR(60) NOT NULL
				)`,
			},
		},
		down: []string{
			"DROP TABLE blessings",
		},
	}

	allMigrations = append(allMigrations, m)
}

package migrations

func init() {
	m := &migration{
		id: "20261005093500_seed_blessings",
		up: map[string][]string{
			// one statement per row keeps the generated ids in this order
			"": {
				"INSERT INTO blessings (message) VALUES ('Have a nice day')",
				"INSERT INTO blessings (message) VALUES ('May your builds be green')",
				"INSERT INTO blessings (message) VALUES ('May your queries return exactly one row')",
				"INSERT INTO blessings (message) VALUES ('May all your transactions commit')",
			},
		},
		down: []string{
			"DELETE FROM blessings",
		},
	}

	allMigrations = append(allMigrations, m)
}

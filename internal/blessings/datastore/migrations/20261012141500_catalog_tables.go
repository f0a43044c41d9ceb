package migrations

func init() {
	m := &migration{
		id: "20261012141500_catalog_tables",
		up: map[string][]string{
			Postgres: {
				`CREATE TABLE product (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(40) NOT NULL
				)`,
				`CREATE TABLE client_category (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(40) NOT NULL
				)`,
				`CREATE TABLE producto_cliente_categoria_precio (
					product_id BIGINT NOT NULL REFERENCES product (id),
					client_category_id BIGINT NOT NULL REFERENCES client_category (id),
					price BIGINT NOT NULL,
					PRIMARY KEY (product_id, client_category_id)
				)`,
				`CREATE INDEX producto_cliente_categoria_precio_client_category_idx
					ON producto_cliente_categoria_precio (client_category_id)`,
			},
			SQLite3: {
				`CREATE TABLE product (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name VARCHAR(40) NOT NULL
				)`,
				`CREATE TABLE client_category (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name VARCHAR(40) NOT NULL
				)`,
				`CREATE TABLE producto_cliente_categoria_precio (
					product_id INTEGER NOT NULL REFERENCES product (id),
					client_category_id INTEGER NOT NULL REFERENCES client_category (id),
					price INTEGER NOT NULL,
					PRIMARY KEY (product_id, client_category_id)
				)`,
				`CREATE INDEX producto_cliente_categoria_precio_client_category_idx
					ON producto_cliente_categoria_precio (client_category_id)`,
			},
		},
		down: []string{
			"DROP TABLE producto_cliente_categoria_precio",
			"DROP TABLE client_category",
			"DROP TABLE product",
		},
	}

	allMigrations = append(allMigrations, m)
}

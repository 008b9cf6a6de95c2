package postgres

const SchemaInventory = `
CREATE TABLE IF NOT EXISTS stock_records (
	product_id       TEXT PRIMARY KEY,
	store_id         TEXT NOT NULL,
	quantity_on_hand INTEGER NOT NULL CHECK (quantity_on_hand >= 0),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const SchemaOrders = `
CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	order_date    TIMESTAMPTZ NOT NULL,
	is_canceled   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const SchemaOrderItems = `
CREATE TABLE IF NOT EXISTS order_items (
	order_id     TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	product_id   TEXT NOT NULL,
	product_name TEXT NOT NULL,
	quantity     INTEGER NOT NULL CHECK (quantity > 0),
	unit_price   NUMERIC(14,2) NOT NULL CHECK (unit_price >= 0),
	PRIMARY KEY (order_id, position)
)`

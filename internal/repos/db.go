package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: ":memory:" databases are per-connection and sqlite
	// serializes writers anyway
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed the demo catalog if the products table is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Catalog snapshot source (used when no remote catalog is configured)
CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  category TEXT NOT NULL,
  brand TEXT NOT NULL DEFAULT '',
  thumbnail TEXT NOT NULL DEFAULT '',
  rating NUMERIC NOT NULL DEFAULT 0,
  discount_percentage NUMERIC NOT NULL DEFAULT 0
    CHECK (discount_percentage >= 0 AND discount_percentage <= 100)
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

-- Per-session durable key/value records (the "cart" key lives here)
CREATE TABLE IF NOT EXISTS kv(
  session_id TEXT NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_kv_updated_at ON kv(updated_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(id,title,description,price,stock,category,brand,thumbnail,rating,discount_percentage) VALUES
	  (1,'iPhone 9','An apple mobile which is nothing like apple',549,94,'smartphones','Apple','https://cdn.dummyjson.com/product-images/1/thumbnail.jpg',4.69,12.96),
	  (2,'iPhone X','SIM-Free, Model A19211 6.5-inch Super Retina HD display with OLED technology',899,34,'smartphones','Apple','https://cdn.dummyjson.com/product-images/2/thumbnail.jpg',4.44,17.94),
	  (3,'Samsung Universe 9','Samsung''s new variant which goes beyond Galaxy to the Universe',1249,36,'smartphones','Samsung','https://cdn.dummyjson.com/product-images/3/thumbnail.jpg',4.09,15.46),
	  (4,'OPPOF19','OPPO F19 is officially announced on April 2021.',280,123,'smartphones','OPPO','https://cdn.dummyjson.com/product-images/4/thumbnail.jpg',4.3,17.91),
	  (5,'Huawei P30','Huawei''s re-badged P30 Pro New Edition',499,32,'smartphones','Huawei','https://cdn.dummyjson.com/product-images/5/thumbnail.jpg',4.09,10.58),
	  (6,'MacBook Pro','MacBook Pro 2021 with mini-LED display may launch between September, November',1749,83,'laptops','Apple','https://cdn.dummyjson.com/product-images/6/thumbnail.png',4.57,11.02),
	  (7,'Samsung Galaxy Book','Samsung Galaxy Book S (2020) Laptop With Intel Lakefield Chip, 8GB of RAM Launched',1499,50,'laptops','Samsung','https://cdn.dummyjson.com/product-images/7/thumbnail.jpg',4.25,4.15),
	  (8,'Microsoft Surface Laptop 4','Style and speed. Stand out on HD video calls backed by Studio Mics.',1499,68,'laptops','Microsoft Surface','https://cdn.dummyjson.com/product-images/8/thumbnail.jpg',4.43,10.23),
	  (9,'Infinix INBOOK','Infinix Inbook X1 Ci3 10th 8GB 256GB 14 Win10 Grey',1099,96,'laptops','Infinix','https://cdn.dummyjson.com/product-images/9/thumbnail.jpg',4.54,11.83),
	  (10,'HP Pavilion 15-DK1056WM','HP Pavilion 15-DK1056WM Gaming Laptop 10th Gen Core i5',1099,89,'laptops','HP Pavilion','https://cdn.dummyjson.com/product-images/10/thumbnail.jpeg',4.43,6.18),
	  (11,'perfume Oil','Mega Discount, Impression of Acqua Di Gio by GiorgioArmani concentrated attar perfume Oil',13,65,'fragrances','Impression of Acqua Di Gio','https://cdn.dummyjson.com/product-images/11/thumbnail.jpg',4.26,8.4),
	  (12,'Brown Perfume','Royal_Mirage Sport Brown Perfume for Men & Women - 120ml',40,52,'fragrances','Royal_Mirage','https://cdn.dummyjson.com/product-images/12/thumbnail.jpg',4,15.66),
	  (13,'Fog Scent Xpressio Perfume','Product details of Best Fog Scent Xpressio Perfume 100ml For Men',13,61,'fragrances','Fog Scent Xpressio','https://cdn.dummyjson.com/product-images/13/thumbnail.webp',4.59,8.14),
	  (14,'Non-Alcoholic Concentrated Perfume Oil','Original Al Munakh by Mahal Al Musk',120,0,'fragrances','Al Munakh','https://cdn.dummyjson.com/product-images/14/thumbnail.jpg',4.21,15.6)`)
	return tx.Commit()
}

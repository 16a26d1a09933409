package fooddata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSchema creates the tables read by LoadSQLite and updated by the
// SQLite sink. It matches the layout of food_data.db.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS Food (
	food_id INTEGER PRIMARY KEY,
	fdc_id INTEGER,
	description TEXT,
	category TEXT,
	diet_category TEXT
);
CREATE TABLE IF NOT EXISTS FoodIngredients (
	food_id INTEGER,
	ingredient_id INTEGER,
	amount REAL,
	FOREIGN KEY (food_id) REFERENCES Food(food_id)
);
CREATE INDEX IF NOT EXISTS idx_food_category ON Food (category);
CREATE INDEX IF NOT EXISTS idx_food_ingredients_food_id ON FoodIngredients (food_id);
CREATE INDEX IF NOT EXISTS idx_food_diet_category ON Food (diet_category);
`

// OpenSQLite opens food_data.db and makes sure the tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer; modernc serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return db, nil
}

// LoadSQLite reads every food and its ingredient list from db into an
// in-memory store.
func LoadSQLite(ctx context.Context, db *sql.DB) (*Store, error) {
	logger := slog.Default().With("component", "sqlite-loader")
	store, put, err := NewMemoryStore()
	if err != nil {
		return nil, err
	}

	ingredients := make(map[int64][]int64)
	rows, err := db.QueryContext(ctx, `SELECT food_id, ingredient_id FROM FoodIngredients ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	for rows.Next() {
		var foodID, ingredientID int64
		if err := rows.Scan(&foodID, &ingredientID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		ingredients[foodID] = append(ingredients[foodID], ingredientID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ingredients: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT food_id, fdc_id, description, category FROM Food ORDER BY food_id`)
	if err != nil {
		return nil, fmt.Errorf("querying foods: %w", err)
	}
	defer rows.Close()
	var loaded, skipped int
	for rows.Next() {
		var (
			foodID      int64
			fdcID       sql.NullInt64
			description sql.NullString
			category    sql.NullString
		)
		if err := rows.Scan(&foodID, &fdcID, &description, &category); err != nil {
			return nil, fmt.Errorf("scanning food: %w", err)
		}
		if !fdcID.Valid {
			skipped++
			continue
		}
		f := Food{
			ID:            foodID,
			FdcID:         fdcID.Int64,
			Description:   description.String,
			Category:      category.String,
			IngredientIDs: ingredients[foodID],
			Dataset:       "sqlite",
		}
		if err := put(f); err != nil {
			return nil, err
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading foods: %w", err)
	}
	logger.Info("foods loaded from sqlite", "foods", loaded, "skipped_without_fdc_id", skipped)
	return store, nil
}

package csql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/galerie-tech/galerie/core/logger"
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

// OpenWithSchema opens the galerie postgres database with a schema.
// The schema gets created if it does not exist yet.
func OpenWithSchema(dataSourceName, password, schema string) *DB {
	rlog := logger.Default()
	rlog.Infoln("connecting to postgres database:", dataSourceName)
	if len(password) > 0 {
		dataSourceName += " password=" + password
	}
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		panic(err)
	}
	err = db.Ping()
	if err != nil {
		panic(err)
	}
	if len(schema) == 0 {
		schema = "public"
	} else {
		rlog.Infoln("selected database schema:", schema)
		_, err = db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`)
		if err != nil {
			panic(err)
		}
	}
	return &DB{DB: db, Schema: schema}
}

// ClearSchema clears all the data contained in the database's schema.
// Technically this is done by dropping the schema and then recreating it.
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		logger.Default().Errorln("clear schema error:", db.Schema, err.Error())
	}
}

// HasTable reports whether the named table exists in the database's schema.
func (db *DB) HasTable(ctx context.Context, table string) (bool, error) {
	var regclass sql.NullString
	err := db.QueryRowContext(ctx, `SELECT to_regclass($1);`,
		db.Schema+"."+table).Scan(&regclass)
	if err != nil {
		return false, err
	}
	return regclass.Valid, nil
}

// EnsureSeed executes the seed script if the sentinel table does not exist
// yet. The script runs in a single transaction with the search path set to
// the database's schema, so a partial bootstrap never becomes visible.
func (db *DB) EnsureSeed(ctx context.Context, sentinelTable, seedSQL string) error {
	ok, err := db.HasTable(ctx, sentinelTable)
	if err != nil {
		return fmt.Errorf("cannot check for table %s: %w", sentinelTable, err)
	}
	if ok {
		return nil
	}
	logger.Default().Infoln("seeding database schema:", db.Schema)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(`SET LOCAL search_path TO ` + db.Schema + `;`); err != nil {
		tx.Rollback()
		return err
	}
	if _, err = tx.Exec(seedSQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("seed script failed: %w", err)
	}
	return tx.Commit()
}

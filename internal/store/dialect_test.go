package store

import "testing"

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE x = ? AND y = ?"
	if got := dialectSQLite.rebind(query); got != query {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
	if got := dialectPostgres.rebind(query); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Fatalf("unexpected postgres query: %q", got)
	}
}

func TestLoadMigrationsPerDialect(t *testing.T) {
	for _, d := range []dialect{dialectSQLite, dialectPostgres} {
		migrations, err := loadMigrations(d)
		if err != nil {
			t.Fatalf("loadMigrations(%s): %v", d, err)
		}
		if len(migrations) == 0 || migrations[0].version != "001_initial" {
			t.Fatalf("unexpected migrations for %s: %#v", d, migrations)
		}
	}
}

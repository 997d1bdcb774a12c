package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"rcss/builtin"
	"rcss/store"
	"rcss/stylesheet"
)

func TestExport(t *testing.T) {
	s, err := builtin.New(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	p := stylesheet.NewParser(s, zap.NewNop())
	sheet := p.Parse([]byte("h1 { margin: 1px 2px; colour: red }\n@media print { p { color: blue } }"), "a.css")

	path := filepath.Join(t.TempDir(), "out.sqlite")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Export(path, s, zap.NewNop(), sheet); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	count := func(query string) int {
		t.Helper()
		n, err := sqlitex.ResultInt(conn.Prep(query))
		if err != nil {
			t.Fatalf("%s: %v", query, err)
		}
		return n
	}

	if got, want := count(`SELECT count(*) FROM properties`), len(s.GetRegisteredProperties()); got != want {
		t.Errorf("properties = %d, want %d", got, want)
	}
	if got, want := count(`SELECT count(*) FROM shorthands`), len(s.Shorthands()); got != want {
		t.Errorf("shorthands = %d, want %d", got, want)
	}
	if got := count(`SELECT count(*) FROM declarations`); got != 5 {
		t.Errorf("declarations = %d, want 5", got)
	}
	if got := count(`SELECT count(*) FROM warnings`); got != 1 {
		t.Errorf("warnings = %d, want 1", got)
	}

	var rows []string
	err = sqlitex.Execute(conn,
		`SELECT d.selector, d.media, p.name, d.value, d.line FROM declarations d JOIN properties p ON p.id = d.property_id ORDER BY d.rowid`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, stmt.ColumnText(0)+"|"+stmt.ColumnText(1)+"|"+stmt.ColumnText(2)+"|"+stmt.ColumnText(3)+"|"+stmt.ColumnText(4))
			return nil
		}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"h1||margin-top|1px|1",
		"h1||margin-right|2px|1",
		"h1||margin-bottom|1px|1",
		"h1||margin-left|2px|1",
		"p|print|color|blue|2",
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %q", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}

	var typ string
	err = sqlitex.Execute(conn, `SELECT type FROM shorthands WHERE name = ?`,
		&sqlitex.ExecOptions{Args: []any{"border"}, ResultFunc: func(stmt *sqlite.Stmt) error {
			typ = stmt.ColumnText(0)
			return nil
		}})
	if err != nil || typ != "recursive" {
		t.Errorf("border type = %q, %v", typ, err)
	}

	meta := map[string]string{}
	err = sqlitex.Execute(conn, `SELECT key, value FROM meta`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			meta[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		}})
	if err != nil {
		t.Fatal(err)
	}
	id, err := uuid.Parse(meta["run_id"])
	if err != nil || id.Version() != 7 {
		t.Errorf("run_id = %q (%v)", meta["run_id"], err)
	}
	if meta["created"] == "" || meta["generator"] == "" {
		t.Errorf("meta = %v", meta)
	}
}

func TestExport_DistinctRuns(t *testing.T) {
	s, err := builtin.New(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	runID := func(name string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := store.Export(path, s, nil); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		var id string
		err = sqlitex.Execute(conn, `SELECT value FROM meta WHERE key = 'run_id'`,
			&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnText(0)
				return nil
			}})
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	if a, b := runID("a.sqlite"), runID("b.sqlite"); a == "" || a == b {
		t.Errorf("run ids %q and %q must be distinct", a, b)
	}
}

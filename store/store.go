// Package store exports specification and parsed stylesheets into SQLite
// database.
package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"rcss/misc"
	"rcss/spec"
	"rcss/stylesheet"
)

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE properties (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	default_value TEXT NOT NULL,
	inherited     INTEGER NOT NULL,
	forces_layout INTEGER NOT NULL,
	comma_list    INTEGER NOT NULL
);
CREATE TABLE shorthands (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	type  TEXT NOT NULL,
	items TEXT NOT NULL
);
CREATE TABLE declarations (
	source      TEXT NOT NULL,
	line        INTEGER NOT NULL,
	selector    TEXT NOT NULL,
	media       TEXT NOT NULL,
	property_id INTEGER NOT NULL REFERENCES properties(id),
	value       TEXT NOT NULL,
	value_type  TEXT NOT NULL
);
CREATE TABLE warnings (
	source  TEXT NOT NULL,
	message TEXT NOT NULL
);
`

// Export writes specification and resolved declarations of sheets into a new
// SQLite database at path. Existing file is replaced. Everything is written
// in a single transaction. Every database gets unique time ordered run id in
// meta table, so exports of the same sources can be told apart.
func Export(path string, s *spec.Specification, log *zap.Logger, sheets ...*stylesheet.Stylesheet) (err error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to remove existing database: %w", err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("unable to create database: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close database: %w", cerr)
		}
	}()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("unable to create schema: %w", err)
	}

	defer sqlitex.Save(conn)(&err)

	runID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("unable to generate run id: %w", err)
	}
	if err := writeMeta(conn, map[string]string{
		"run_id":    runID.String(),
		"created":   time.Now().UTC().Format(time.RFC3339),
		"generator": misc.GetAppName() + " " + misc.GetVersion(),
	}); err != nil {
		return err
	}
	if err := writeSpecification(conn, s); err != nil {
		return err
	}
	var count int
	for _, sheet := range sheets {
		n, err := writeStylesheet(conn, sheet)
		if err != nil {
			return fmt.Errorf("stylesheet '%s': %w", sheet.Source, err)
		}
		count += n
	}
	log.Debug("Database written", zap.String("path", path), zap.Stringer("run", runID), zap.Int("stylesheets", len(sheets)), zap.Int("declarations", count))
	return nil
}

func writeMeta(conn *sqlite.Conn, values map[string]string) error {
	for k, v := range values {
		err := sqlitex.Execute(conn, `INSERT INTO meta (key, value) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{k, v}})
		if err != nil {
			return fmt.Errorf("unable to insert meta '%s': %w", k, err)
		}
	}
	return nil
}

func writeSpecification(conn *sqlite.Conn, s *spec.Specification) error {
	for _, name := range s.GetRegisteredProperties() {
		def := s.GetPropertyByName(name)
		err := sqlitex.Execute(conn,
			`INSERT INTO properties (id, name, default_value, inherited, forces_layout, comma_list) VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{int64(def.ID()), def.Name(), def.DefaultValue(), def.IsInherited(), def.ForcesLayout(), def.IsCommaList()}})
		if err != nil {
			return fmt.Errorf("unable to insert property '%s': %w", name, err)
		}
	}
	for _, sd := range s.Shorthands() {
		items := make([]string, 0, len(sd.Items))
		for _, it := range sd.Items {
			items = append(items, s.ItemName(it))
		}
		err := sqlitex.Execute(conn,
			`INSERT INTO shorthands (id, name, type, items) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{int64(sd.ID), sd.Name, sd.Type.String(), strings.Join(items, ", ")}})
		if err != nil {
			return fmt.Errorf("unable to insert shorthand '%s': %w", sd.Name, err)
		}
	}
	return nil
}

func writeStylesheet(conn *sqlite.Conn, sheet *stylesheet.Stylesheet) (int, error) {
	stmt := conn.Prep(`INSERT INTO declarations (source, line, selector, media, property_id, value, value_type) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var count int
	insert := func(rule *stylesheet.Rule, media string) error {
		selector := strings.Join(rule.Selectors, ", ")
		for _, id := range rule.Properties.IDs() {
			p, _ := rule.Properties.Get(id)
			source := p.Source
			if source == "" {
				source = sheet.Source
			}
			stmt.BindText(1, source)
			stmt.BindInt64(2, int64(p.Line))
			stmt.BindText(3, selector)
			stmt.BindText(4, media)
			stmt.BindInt64(5, int64(id))
			stmt.BindText(6, p.Value.String())
			stmt.BindText(7, p.Value.Type.String())
			if _, err := stmt.Step(); err != nil {
				return err
			}
			if err := stmt.Reset(); err != nil {
				return err
			}
			count++
		}
		return nil
	}

	for _, item := range sheet.Items {
		switch {
		case item.Rule != nil:
			if err := insert(item.Rule, ""); err != nil {
				return count, err
			}
		case item.Media != nil:
			for i := range item.Media.Rules {
				if err := insert(&item.Media.Rules[i], item.Media.Query); err != nil {
					return count, err
				}
			}
		}
	}
	for _, w := range sheet.Warnings {
		err := sqlitex.Execute(conn, `INSERT INTO warnings (source, message) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{sheet.Source, w}})
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

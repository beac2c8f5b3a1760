// Package catalog stores schema documents in a SQLite database together with
// an index of the members they declare.
//
// Documents are keyed by name and fingerprinted by content, so storing an
// unchanged document is a no-op. The member index answers "which types
// declare a member called X" without loading every document.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/schema"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	name        TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	body        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS members (
	document  TEXT NOT NULL,
	type      TEXT NOT NULL,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	signature TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS members_by_name ON members(name);
`

// ErrNotFound is returned for documents that are not in the catalog.
var ErrNotFound = errors.New("catalog: document not found")

// Catalog is a SQLite-backed document store. It is safe for concurrent use.
type Catalog struct {
	db   *sql.DB
	path string
}

// Entry summarizes a stored document.
type Entry struct {
	Name        string
	Fingerprint string
}

// Member is one row of the member index.
type Member struct {
	Document  string
	Type      string
	Name      string
	Kind      string // property, method, indexer, value or extension
	Signature string
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog %s: %w", path, err)
	}
	return &Catalog{db: db, path: path}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Fingerprint returns the content key of an encoded document.
func Fingerprint(body []byte) string {
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:])[:16]
}

// Store saves doc under name and rebuilds its member index. changed is false
// when the stored copy already has the same content.
func (c *Catalog) Store(ctx context.Context, name string, doc *schema.Document) (changed bool, err error) {
	body, err := schema.Encode(doc)
	if err != nil {
		return false, err
	}
	fp := Fingerprint(body)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("catalog: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT fingerprint FROM documents WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil && existing == fp:
		return false, tx.Commit()
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("catalog: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO documents(name, fingerprint, body) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET fingerprint = excluded.fingerprint, body = excluded.body`,
		name, fp, string(body)); err != nil {
		return false, fmt.Errorf("catalog: storing %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM members WHERE document = ?`, name); err != nil {
		return false, fmt.Errorf("catalog: %w", err)
	}
	for _, m := range index(name, doc) {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO members(document, type, name, kind, signature) VALUES(?, ?, ?, ?, ?)`,
			m.Document, m.Type, m.Name, m.Kind, m.Signature); err != nil {
			return false, fmt.Errorf("catalog: indexing %s: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("catalog: %w", err)
	}
	return true, nil
}

// Documents lists the stored documents ordered by name.
func (c *Catalog) Documents(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, fingerprint FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Fingerprint); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Document returns the stored document called name.
func (c *Catalog) Document(ctx context.Context, name string) (*schema.Document, error) {
	var body string
	err := c.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return schema.Parse([]byte(body), c.path+"#"+name)
}

// Remove deletes a document and its index rows.
func (c *Catalog) Remove(ctx context.Context, name string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM members WHERE document = ?`, name)
	}
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("catalog: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return tx.Commit()
}

// FindMembers returns the index rows for members called name, ordered by
// document and type.
func (c *Catalog) FindMembers(ctx context.Context, name string) ([]Member, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT document, type, name, kind, signature FROM members WHERE name = ? ORDER BY document, type, signature`, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Document, &m.Type, &m.Name, &m.Kind, &m.Signature); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Load merges every stored document and loads the result into reg.
func (c *Catalog) Load(ctx context.Context, reg *registry.Registry, funcs schema.Functions) (map[string]*typesystem.TNamed, error) {
	entries, err := c.Documents(ctx)
	if err != nil {
		return nil, err
	}
	merged := &schema.Document{Path: c.path}
	for _, e := range entries {
		doc, err := c.Document(ctx, e.Name)
		if err != nil {
			return nil, err
		}
		merged.Merge(doc)
	}
	return schema.Load(reg, merged, funcs)
}

func index(document string, doc *schema.Document) []Member {
	var out []Member
	add := func(typ, name, kind, sig string) {
		out = append(out, Member{Document: document, Type: typ, Name: name, Kind: kind, Signature: sig})
	}
	for _, t := range doc.Types {
		for _, v := range t.Values {
			add(t.Name, v, "value", v)
		}
		for _, p := range t.Properties {
			sig := p.Name + " " + p.Type
			if p.Static {
				sig = "static " + sig
			}
			add(t.Name, p.Name, "property", sig)
		}
		for _, m := range t.Methods {
			add(t.Name, m.Name, "method", signature(m))
		}
		for _, ix := range t.Indexers {
			add(t.Name, "[]", "indexer", "["+strings.Join(ix.Params, ", ")+"] "+ix.Type)
		}
	}
	for _, ext := range doc.Extensions {
		for _, m := range ext.Methods {
			add(ext.Container, m.Name, "extension", signature(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func signature(m schema.MethodSpec) string {
	var sb strings.Builder
	if m.Static {
		sb.WriteString("static ")
	}
	sb.WriteString(m.Name)
	if len(m.TypeParams) > 0 {
		sb.WriteString("<" + strings.Join(m.TypeParams, ", ") + ">")
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Type
		if p.Variadic {
			params[i] = "params " + p.Type + "[]"
		}
	}
	sb.WriteString("(" + strings.Join(params, ", ") + ")")
	if m.Result != "" {
		sb.WriteString(" " + m.Result)
	}
	return sb.String()
}

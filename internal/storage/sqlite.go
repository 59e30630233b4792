package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"specgraph/internal/cache"
	"specgraph/internal/crawler"
	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/registry"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS elements (
			project TEXT,
			id TEXT,
			seq INTEGER,
			kind TEXT,
			parent_id TEXT,
			package TEXT,
			declaring_type TEXT,
			name TEXT,
			field_type TEXT,
			ignored INTEGER,
			state TEXT,
			file TEXT,
			start_line INTEGER,
			end_line INTEGER,
			PRIMARY KEY (project, id)
		);`,
		`CREATE TABLE IF NOT EXISTS declarations (
			project TEXT,
			handle TEXT,
			kind TEXT,
			element_id TEXT,
			PRIMARY KEY (project, handle, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			project TEXT,
			path TEXT,
			hash TEXT,
			types JSON,
			PRIMARY KEY (project, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_elements_file ON elements(project, file);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// ElementRecord is the stored form of one element.
type ElementRecord struct {
	ID            string
	Kind          element.Kind
	ParentID      string
	Package       string
	DeclaringType string
	Name          string
	FieldType     string
	Ignored       bool
	State         element.State
	Location      element.Location
}

func recordOf(e element.Element) ElementRecord {
	r := ElementRecord{
		ID:       e.ID(),
		Kind:     e.Kind(),
		Name:     e.Name(),
		Ignored:  e.IsIgnored(),
		State:    e.State(),
		Location: e.Location(),
	}
	if p := e.Parent(); p != nil {
		r.ParentID = p.ID()
	}
	switch v := e.(type) {
	case *element.Context:
		r.Package = v.Package()
		r.DeclaringType = v.TypeName()
	case *element.Behavior:
		r.DeclaringType = v.DeclaringType()
		r.FieldType = v.FieldType()
	case *element.Specification:
		r.DeclaringType = v.DeclaringType()
	}
	return r
}

// SaveSnapshot implements SnapshotStore.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, reg *registry.Registry, c *cache.ElementCache, files []*crawler.FileEntry) error {
	project := c.Project()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"elements", "declarations", "files"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project = ?", project); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// 1. Save Elements, parents first
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO elements (project, id, seq, kind, parent_id, package, declaring_type, name, field_type, ignored, state, file, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := 0
	for _, root := range reg.Roots(project) {
		for _, e := range append([]element.Element{root}, element.Flatten(root)...) {
			r := recordOf(e)
			if _, err := stmt.ExecContext(ctx, project, r.ID, seq, string(r.Kind), r.ParentID, r.Package, r.DeclaringType, r.Name, r.FieldType,
				r.Ignored, r.State.String(), r.Location.File, r.Location.StartLine, r.Location.EndLine); err != nil {
				return fmt.Errorf("failed to save element %s: %w", r.ID, err)
			}
			seq++
		}
	}

	// 2. Save cache entries
	declStmt, err := tx.PrepareContext(ctx, `INSERT INTO declarations (project, handle, kind, element_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer declStmt.Close()

	for _, h := range c.ContextHandles() {
		ctxElem, _ := c.Context(h)
		if _, err := declStmt.ExecContext(ctx, project, string(h), string(element.KindContext), ctxElem.ID()); err != nil {
			return err
		}
	}
	for _, h := range c.BehaviorHandles() {
		b, _ := c.Behavior(h)
		if _, err := declStmt.ExecContext(ctx, project, string(h), string(element.KindBehavior), b.ID()); err != nil {
			return err
		}
	}

	// 3. Save per-file extraction cache
	fileStmt, err := tx.PrepareContext(ctx, `INSERT INTO files (project, path, hash, types) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fileStmt.Close()

	for _, f := range files {
		types, err := json.Marshal(f.Types)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.Path, err)
		}
		if _, err := fileStmt.ExecContext(ctx, project, f.Path, f.Hash, types); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot implements SnapshotStore. reg should not hold elements of the project yet.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, reg *registry.Registry, c *cache.ElementCache) ([]*crawler.FileEntry, error) {
	project := c.Project()

	records, err := s.loadRecords(ctx, project)
	if err != nil {
		return nil, err
	}

	// 1. Rebuild elements; seq order puts parents before children
	byID := make(map[string]element.Element, len(records))
	for _, r := range records {
		e := rebuild(r, byID)
		if e == nil {
			continue
		}
		e.SetState(r.State)
		e.SetLocation(r.Location)
		byID[r.ID] = e
		reg.Add(project, e)
	}

	// 2. Restore cache entries
	rows, err := s.db.QueryContext(ctx, "SELECT handle, kind, element_id FROM declarations WHERE project = ?", project)
	if err != nil {
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var handle, kind, id string
		if err := rows.Scan(&handle, &kind, &id); err != nil {
			return nil, fmt.Errorf("failed to scan declaration: %w", err)
		}
		switch e := byID[id].(type) {
		case *element.Context:
			c.SetContext(declaration.Handle(handle), e)
		case *element.Behavior:
			c.SetBehavior(declaration.Handle(handle), e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 3. Load per-file extraction cache
	return s.loadFiles(ctx, project)
}

func (s *SQLiteStore) loadRecords(ctx context.Context, project string) ([]ElementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, parent_id, package, declaring_type, name, field_type, ignored, state, file, start_line, end_line
		FROM elements WHERE project = ? ORDER BY seq`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	var records []ElementRecord
	for rows.Next() {
		var r ElementRecord
		var kind, state string
		if err := rows.Scan(&r.ID, &kind, &r.ParentID, &r.Package, &r.DeclaringType, &r.Name, &r.FieldType, &r.Ignored, &state,
			&r.Location.File, &r.Location.StartLine, &r.Location.EndLine); err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		r.Kind = element.Kind(kind)
		r.State, _ = element.ParseState(state)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) loadFiles(ctx context.Context, project string) ([]*crawler.FileEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, hash, types FROM files WHERE project = ? ORDER BY path", project)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*crawler.FileEntry
	for rows.Next() {
		var f crawler.FileEntry
		var types []byte
		if err := rows.Scan(&f.Path, &f.Hash, &types); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		if len(types) > 0 {
			if err := json.Unmarshal(types, &f.Types); err != nil {
				// an undecodable entry is simply parsed again
				continue
			}
		}
		declaration.Relink(f.Types)
		files = append(files, &f)
	}
	return files, rows.Err()
}

// rebuild constructs the element of r under its already rebuilt parent.
func rebuild(r ElementRecord, byID map[string]element.Element) element.Element {
	parent := byID[r.ParentID]
	switch r.Kind {
	case element.KindContext:
		return element.NewContext(r.Package, r.Name, r.DeclaringType, r.Ignored)
	case element.KindBehavior:
		ctx, ok := parent.(*element.Context)
		if !ok {
			return nil
		}
		return element.NewBehavior(ctx, r.DeclaringType, r.Name, r.Ignored, r.FieldType)
	case element.KindContextSpecification:
		ctx, ok := parent.(*element.Context)
		if !ok {
			return nil
		}
		return element.NewContextSpecification(ctx, r.Name, r.Ignored)
	case element.KindBehaviorSpecification:
		b, ok := parent.(*element.Behavior)
		if !ok {
			return nil
		}
		return element.NewBehaviorSpecification(b, r.DeclaringType, r.Name, r.Ignored)
	}
	return nil
}

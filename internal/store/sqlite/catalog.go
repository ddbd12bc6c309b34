package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/id"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// Store implements store.Client.
var _ store.Client = (*Store)(nil)

// Fetch returns the records of kind matching q.
func (s *Store) Fetch(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return nil, err
	}

	where, args, empty := buildWhere(q)
	if empty {
		return []store.Record{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s", strings.Join(schema.Fields, ", "), kind, where, buildOrder(q))
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "fetch "+string(kind))
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		r, err := scanRecord(rows, schema.Fields)
		if err != nil {
			return nil, classify(err, "scan "+string(kind))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate "+string(kind))
	}
	return records, nil
}

// FetchOne returns the record with the given id.
func (s *Store) FetchOne(ctx context.Context, kind store.Kind, recordID string) (store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(schema.Fields, ", "), kind)
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, recordID), schema.Fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	if err != nil {
		return nil, classify(err, "fetch "+string(kind))
	}
	return r, nil
}

// Insert stores a new record, assigning an id when the kind has a prefix.
func (s *Store) Insert(ctx context.Context, kind store.Kind, fields store.Record) (store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}

	r := fields.Clone()
	if r.ID() == "" {
		if schema.Prefix == "" {
			return nil, store.ErrInvalidQuery.WithMessage(fmt.Sprintf("%s requires an explicit id", kind))
		}
		newID, err := id.Generate(schema.Prefix)
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		r["id"] = newID
	}

	cols := make([]string, 0, len(r))
	placeholders := make([]string, 0, len(r))
	args := make([]any, 0, len(r))
	for _, col := range schema.Fields {
		v, ok := r[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", kind, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			s.logger.DebugContext(ctx, "insert rejected by unique constraint", "kind", kind, "error", err)
			return nil, store.ErrConflict.WithCause(err)
		}
		return nil, classify(err, "insert "+string(kind))
	}

	return s.FetchOne(ctx, kind, r.ID())
}

// Update sets the given fields on the record with the given id.
func (s *Store) Update(ctx context.Context, kind store.Kind, recordID string, fields store.Record) (store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}
	if _, ok := fields["id"]; ok {
		return nil, store.ErrInvalidQuery.WithMessage("id cannot be updated")
	}
	if len(fields) == 0 {
		return s.FetchOne(ctx, kind, recordID)
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, col := range schema.Fields {
		v, ok := fields[col]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	args = append(args, recordID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", kind, strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrConflict.WithCause(err)
		}
		return nil, classify(err, "update "+string(kind))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}

	return s.FetchOne(ctx, kind, recordID)
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, kind store.Kind, recordID string) error {
	if _, err := store.Lookup(kind); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", kind), recordID)
	if err != nil {
		return classify(err, "delete "+string(kind))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	return nil
}

// DeleteWhere removes every record of kind matching q.
func (s *Store) DeleteWhere(ctx context.Context, kind store.Kind, q store.Query) (int, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return 0, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return 0, err
	}
	if len(q.Filters) == 0 {
		return 0, store.ErrInvalidQuery.WithMessage("delete without filters")
	}

	where, args, empty := buildWhere(q)
	if empty {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", kind, where), args...)
	if err != nil {
		return 0, classify(err, "delete "+string(kind))
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// buildWhere renders q's filters. Field names have already been checked
// against the schema; values are always bound. empty reports a filter
// that can match nothing (an empty In list).
func buildWhere(q store.Query) (where string, args []any, empty bool) {
	if len(q.Filters) == 0 {
		return "", nil, false
	}

	clauses := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		switch f.Op {
		case store.OpEq:
			if f.Value == nil {
				clauses = append(clauses, f.Field+" IS NULL")
				continue
			}
			clauses = append(clauses, f.Field+" = ?")
			args = append(args, f.Value)
		case store.OpIn:
			values, _ := f.Value.([]string)
			if len(values) == 0 {
				return "", nil, true
			}
			clauses = append(clauses, f.Field+" IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")+")")
			for _, v := range values {
				args = append(args, v)
			}
		case store.OpContains:
			token, _ := f.Value.(string)
			clauses = append(clauses, f.Field+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(token)+"%")
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, false
}

func buildOrder(q store.Query) string {
	if len(q.Orders) == 0 {
		return " ORDER BY rowid"
	}
	parts := make([]string, 0, len(q.Orders)+1)
	for _, o := range q.Orders {
		if o.Desc {
			parts = append(parts, o.Field+" DESC")
		} else {
			parts = append(parts, o.Field+" ASC")
		}
	}
	// Stable ties: insertion order.
	parts = append(parts, "rowid")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// escapeLike makes token match literally inside a LIKE pattern.
func escapeLike(token string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(token)
}

func scanRecord(scanner interface{ Scan(dest ...any) error }, fields []string) (store.Record, error) {
	values := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	r := make(store.Record, len(fields))
	for i, f := range fields {
		if b, ok := values[i].([]byte); ok {
			r[f] = string(b)
			continue
		}
		r[f] = values[i]
	}
	return r, nil
}

// classify maps driver errors onto store sentinels. Context errors pass through.
func classify(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.ErrUnavailable.WithMessage(op).WithCause(err)
}

// Package entdriver implements storage.Driver on ent's SQL dialect layer.
// The sqlite and postgres drivers wrap their connection with entsql.OpenDB
// and share it.
package entdriver

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/ideas/pkg/storage"
)

// EntDriver stores ideas through an ent SQL driver.
type EntDriver struct {
	drv *entsql.Driver
}

// New migrates the ideas table and returns an EntDriver. The EntDriver owns
// drv and closes it on Close.
func New(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s migration: %w", drv.Dialect(), err)
	}

	// Append-only: new tables, columns and indexes are added, nothing is
	// dropped.
	if err := migrate.Create(ctx, IdeasTable); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{drv: drv}, nil
}

// DB returns the underlying database handle.
func (d *EntDriver) DB() *sql.DB {
	return d.drv.DB()
}

func (d *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

func (d *EntDriver) Put(ctx context.Context, idea *storage.Idea) (bool, error) {
	if err := idea.Validate(); err != nil {
		return false, err
	}

	query, args := d.builder().
		Insert(IdeasTable.Name).
		Columns(columns...).
		Values(
			idea.ID, idea.Agent, idea.Model, idea.Prompt, idea.Text, idea.Fragments, idea.Subject,
			idea.StartedAt.UTC(), idea.CompletedAt.UTC(),
		).
		OnConflict(
			entsql.ConflictColumns(ColumnID),
			entsql.DoNothing(),
		).
		Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("inserting idea %s: %w", idea.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting idea %s: %w", idea.ID, err)
	}
	return n == 1, nil
}

func (d *EntDriver) Get(ctx context.Context, id string) (*storage.Idea, error) {
	b := d.builder()
	t := b.Table(IdeasTable.Name)
	query, args := b.Select(t.Columns(columns...)...).
		From(t).
		Where(entsql.EQ(t.C(ColumnID), id)).
		Query()

	ideas, err := d.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("getting idea %s: %w", id, err)
	}
	if len(ideas) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return ideas[0], nil
}

func (d *EntDriver) List(ctx context.Context, limit int) ([]*storage.Idea, error) {
	b := d.builder()
	t := b.Table(IdeasTable.Name)
	query, args := b.Select(t.Columns(columns...)...).
		From(t).
		OrderBy(entsql.Desc(t.C(ColumnCompletedAt)), entsql.Desc(t.C(ColumnID))).
		Limit(storage.ClampLimit(limit)).
		Query()

	ideas, err := d.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("listing ideas: %w", err)
	}
	return ideas, nil
}

func (d *EntDriver) Count(ctx context.Context) (int, error) {
	b := d.builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(IdeasTable.Name)).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("counting ideas: %w", err)
	}
	defer rows.Close()

	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("counting ideas: %w", err)
	}
	return n, nil
}

func (d *EntDriver) Close() error {
	return d.drv.Close()
}

func (d *EntDriver) query(ctx context.Context, query string, args []any) ([]*storage.Idea, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []*storage.Idea
	for rows.Next() {
		var idea storage.Idea
		err := rows.Scan(
			&idea.ID, &idea.Agent, &idea.Model, &idea.Prompt, &idea.Text, &idea.Fragments,
			&idea.Subject, &idea.StartedAt, &idea.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning idea: %w", err)
		}
		idea.StartedAt = idea.StartedAt.UTC()
		idea.CompletedAt = idea.CompletedAt.UTC()
		ideas = append(ideas, &idea)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ideas, nil
}

var _ storage.Driver = (*EntDriver)(nil)

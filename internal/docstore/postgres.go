package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Postgres stores each document as a JSONB row in clurb.documents. The
// version column is bumped on every write and backs SetIfUnchanged.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, path string, v interface{}) (bool, error) {
	_, found, err := p.GetVersioned(ctx, path, v)
	return found, err
}

func (p *Postgres) GetVersioned(ctx context.Context, path string, v interface{}) (string, bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return "", false, err
	}

	const query = `
		SELECT body, version
		FROM clurb.documents
		WHERE path = $1;
	`

	var (
		body    []byte
		version int64
	)
	err = p.db.QueryRowContext(ctx, query, path).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "0", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", path)
	}
	if err := decode(body, v); err != nil {
		return "", false, errors.Wrapf(err, "decode %s", path)
	}
	return strconv.FormatInt(version, 10), true, nil
}

func (p *Postgres) Set(ctx context.Context, path string, v interface{}) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO clurb.documents (path, body, version, updated_at)
		VALUES ($1, $2::jsonb, 1, now())
		ON CONFLICT (path) DO UPDATE
		SET body = EXCLUDED.body, version = clurb.documents.version + 1, updated_at = now();
	`
	if _, err := p.db.ExecContext(ctx, query, path, string(body)); err != nil {
		return errors.Wrapf(err, "set %s", path)
	}
	return nil
}

func (p *Postgres) SetIfUnchanged(ctx context.Context, path, version string, v interface{}) (bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	expected, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return false, errors.Wrapf(err, "parse version %q", version)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	var res sql.Result
	if expected == 0 {
		const insert = `
			INSERT INTO clurb.documents (path, body, version, updated_at)
			VALUES ($1, $2::jsonb, 1, now())
			ON CONFLICT (path) DO NOTHING;
		`
		res, err = p.db.ExecContext(ctx, insert, path, string(body))
	} else {
		const update = `
			UPDATE clurb.documents
			SET body = $2::jsonb, version = version + 1, updated_at = now()
			WHERE path = $1 AND version = $3;
		`
		res, err = p.db.ExecContext(ctx, update, path, string(body), expected)
	}
	if err != nil {
		return false, errors.Wrapf(err, "compare-and-set %s", path)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}

	set := make(map[string]interface{}, len(fields))
	var drop []string
	for key, value := range fields {
		if value == nil {
			drop = append(drop, key)
			continue
		}
		set[key] = value
	}
	patch, err := json.Marshal(set)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO clurb.documents (path, body, version, updated_at)
		VALUES ($1, $2::jsonb - $3::text[], 1, now())
		ON CONFLICT (path) DO UPDATE
		SET body = (clurb.documents.body || $2::jsonb) - $3::text[],
		    version = clurb.documents.version + 1,
		    updated_at = now();
	`
	if _, err := p.db.ExecContext(ctx, query, path, string(patch), pq.Array(drop)); err != nil {
		return errors.Wrapf(err, "update %s", path)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}

	const query = `
		DELETE FROM clurb.documents
		WHERE path = $1 OR path LIKE $2 ESCAPE '\';
	`
	if _, err := p.db.ExecContext(ctx, query, path, escapeLike(path)+"/%"); err != nil {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, parent string) (map[string]json.RawMessage, error) {
	parent, err := cleanPath(parent)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT path, body
		FROM clurb.documents
		WHERE path LIKE $1 ESCAPE '\' AND path NOT LIKE $2 ESCAPE '\';
	`
	prefix := escapeLike(parent) + "/"
	rows, err := p.db.QueryContext(ctx, query, prefix+"%", prefix+"%/%")
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", parent)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			path string
			body []byte
		)
		if err := rows.Scan(&path, &body); err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(path, parent+"/")] = json.RawMessage(body)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

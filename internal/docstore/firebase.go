package docstore

import (
	"context"
	"encoding/json"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/pkg/errors"
)

// Firebase adapts the Realtime Database client. Versions are the ETags the
// database returns; a missing node has an ETag too, so create-if-absent
// works through the same SetIfUnchanged call.
type Firebase struct {
	client *db.Client
}

func OpenFirebase(ctx context.Context, app *firebase.App) (*Firebase, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init realtime database client")
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) ref(path string) (*db.Ref, string, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, "", err
	}
	return f.client.NewRef(path), path, nil
}

func (f *Firebase) Get(ctx context.Context, path string, v interface{}) (bool, error) {
	ref, path, err := f.ref(path)
	if err != nil {
		return false, err
	}
	var raw json.RawMessage
	if err := ref.Get(ctx, &raw); err != nil {
		return false, errors.Wrapf(err, "get %s", path)
	}
	if isNull(raw) {
		return false, nil
	}
	return true, errors.Wrapf(decode(raw, v), "decode %s", path)
}

func (f *Firebase) GetVersioned(ctx context.Context, path string, v interface{}) (string, bool, error) {
	ref, path, err := f.ref(path)
	if err != nil {
		return "", false, err
	}
	var raw json.RawMessage
	etag, err := ref.GetWithETag(ctx, &raw)
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", path)
	}
	if isNull(raw) {
		return etag, false, nil
	}
	if err := decode(raw, v); err != nil {
		return "", false, errors.Wrapf(err, "decode %s", path)
	}
	return etag, true, nil
}

func (f *Firebase) Set(ctx context.Context, path string, v interface{}) error {
	ref, path, err := f.ref(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(ref.Set(ctx, v), "set %s", path)
}

func (f *Firebase) SetIfUnchanged(ctx context.Context, path, version string, v interface{}) (bool, error) {
	ref, path, err := f.ref(path)
	if err != nil {
		return false, err
	}
	ok, err := ref.SetIfUnchanged(ctx, version, v)
	if err != nil {
		return false, errors.Wrapf(err, "compare-and-set %s", path)
	}
	return ok, nil
}

func (f *Firebase) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	ref, path, err := f.ref(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(ref.Update(ctx, fields), "update %s", path)
}

func (f *Firebase) Remove(ctx context.Context, path string) error {
	ref, path, err := f.ref(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(ref.Delete(ctx), "remove %s", path)
}

func (f *Firebase) List(ctx context.Context, parent string) (map[string]json.RawMessage, error) {
	ref, parent, err := f.ref(parent)
	if err != nil {
		return nil, err
	}
	var children map[string]json.RawMessage
	if err := ref.Get(ctx, &children); err != nil {
		return nil, errors.Wrapf(err, "list %s", parent)
	}
	if children == nil {
		children = map[string]json.RawMessage{}
	}
	return children, nil
}

// Close is a no-op; the SDK client holds no resources of its own.
func (f *Firebase) Close() error {
	return nil
}

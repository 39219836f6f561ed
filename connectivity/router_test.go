package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domlens/dbopen"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.localHandlers == nil || r.remoteEntries == nil || r.factories == nil {
		t.Fatal("maps not initialized")
	}
}

func TestRegisterLocal_and_Call(t *testing.T) {
	r := New()
	called := false
	r.RegisterLocal("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		called = true
		return payload, nil
	})

	resp, err := r.Call(context.Background(), "echo", []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("local handler not called")
	}
	if string(resp) != "hello" {
		t.Fatalf("got %q, want %q", resp, "hello")
	}
}

func TestCall_ServiceNotFound(t *testing.T) {
	r := New()
	_, err := r.Call(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var snf *ErrServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("expected ErrServiceNotFound, got %T: %v", err, err)
	}
	if snf.Service != "nonexistent" {
		t.Fatalf("got service %q, want %q", snf.Service, "nonexistent")
	}
}

func TestReload_LocalStrategy(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	localCalled := false
	r.RegisterLocal("domlens_snapshot", func(ctx context.Context, payload []byte) ([]byte, error) {
		localCalled = true
		return []byte("ok"), nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy) VALUES ('domlens_snapshot', 'local')`)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("reload: %v", err)
	}

	resp, err := r.Call(context.Background(), "domlens_snapshot", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !localCalled {
		t.Fatal("local handler not called for local strategy")
	}
	if string(resp) != "ok" {
		t.Fatalf("got %q", resp)
	}
}

func TestReload_NoopStrategy(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	r.RegisterLocal("disabled", func(ctx context.Context, payload []byte) ([]byte, error) {
		t.Fatal("local handler should not be called for noop")
		return nil, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy) VALUES ('disabled', 'noop')`)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	resp, err := r.Call(context.Background(), "disabled", []byte("data"))
	if err != nil {
		t.Fatalf("noop should succeed, got: %v", err)
	}
	if resp != nil {
		t.Fatalf("noop should return nil, got %q", resp)
	}
}

func TestReload_RemoteStrategy(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	remoteCalled := false
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			remoteCalled = true
			return []byte("remote:" + endpoint), nil
		}
		return h, nil, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('domlens_markdown', 'http', 'http://10.0.0.1:8080')`)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	resp, err := r.Call(context.Background(), "domlens_markdown", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !remoteCalled {
		t.Fatal("remote handler not called")
	}
	if string(resp) != "remote:http://10.0.0.1:8080" {
		t.Fatalf("got %q", resp)
	}
}

func TestReload_RemoteOverridesLocal(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	r.RegisterLocal("domlens_snapshot", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("local"), nil
	})

	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte("remote"), nil
		}
		return h, nil, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('domlens_snapshot', 'http', 'http://10.0.0.1:8080')`)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	resp, err := r.Call(context.Background(), "domlens_snapshot", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "remote" {
		t.Fatalf("expected remote to override local, got %q", resp)
	}
}

func TestReload_UnchangedRoutePreservesHandler(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	var buildCount int32
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		atomic.AddInt32(&buildCount, 1)
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte("ok"), nil
		}
		return h, nil, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('svc', 'http', 'http://10.0.0.1')`)
	if err != nil {
		t.Fatal(err)
	}

	// First reload builds the handler.
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if c := atomic.LoadInt32(&buildCount); c != 1 {
		t.Fatalf("expected 1 build, got %d", c)
	}

	// Second reload with same config should NOT rebuild.
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if c := atomic.LoadInt32(&buildCount); c != 1 {
		t.Fatalf("expected still 1 build after unchanged reload, got %d", c)
	}
}

func TestReload_ChangedRouteRebuildsHandler(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	var buildCount int32
	closeCalled := false
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		atomic.AddInt32(&buildCount, 1)
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte(endpoint), nil
		}
		cl := func() { closeCalled = true }
		return h, cl, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('svc', 'http', 'http://old')`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`UPDATE routes SET endpoint='http://new' WHERE service_name='svc'`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	if c := atomic.LoadInt32(&buildCount); c != 2 {
		t.Fatalf("expected 2 builds after endpoint change, got %d", c)
	}
	if !closeCalled {
		t.Fatal("old handler close function not called")
	}

	resp, err := r.Call(context.Background(), "svc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "http://new" {
		t.Fatalf("expected new endpoint, got %q", resp)
	}
}

func TestReload_RemovedRouteClosesHandler(t *testing.T) {
	db := setupTestDB(t)
	r := New()

	closeCalled := false
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			return nil, nil
		}
		return h, func() { closeCalled = true }, nil
	})

	_, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('svc', 'http', 'http://x')`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`DELETE FROM routes WHERE service_name='svc'`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	if !closeCalled {
		t.Fatal("close not called for removed route")
	}
}

func TestClose(t *testing.T) {
	r := New()

	closeCalled := false
	r.remoteEntries["svc"] = remoteEntry{
		handler: func(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil },
		close:   func() { closeCalled = true },
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !closeCalled {
		t.Fatal("close not called")
	}
	if len(r.remoteEntries) != 0 {
		t.Fatal("entries not cleared")
	}
}

func TestHTTPFactory_RejectsLoopback(t *testing.T) {
	f := HTTPFactory()
	_, _, err := f("http://127.0.0.1:9000", nil)
	if err == nil {
		t.Fatal("expected loopback endpoint to be rejected")
	}
}

func TestHTTPFactory_RejectsBadScheme(t *testing.T) {
	f := HTTPFactory()
	_, _, err := f("ftp://example.com", nil)
	if err == nil {
		t.Fatal("expected non-http scheme to be rejected")
	}
}

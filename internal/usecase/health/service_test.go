package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockSearchChecker struct {
	disabled bool
	err      error
}

func (m *mockSearchChecker) Enabled() bool               { return !m.disabled }
func (m *mockSearchChecker) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockSearchChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["search"] != CheckOK {
		t.Errorf("expected search %q, got %q", CheckOK, r.Checks["search"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("database is locked")}, &mockSearchChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
}

func TestCheck_SearchError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockSearchChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["search"] != CheckError {
		t.Errorf("expected search %q, got %q", CheckError, r.Checks["search"])
	}
}

func TestCheck_SearchDisabled(t *testing.T) {
	for _, sc := range []SearchChecker{nil, &mockSearchChecker{disabled: true}} {
		svc := New(&mockDBPinger{}, sc)
		r := svc.Check(context.Background())

		if r.Status != Healthy {
			t.Errorf("expected %q, got %q", Healthy, r.Status)
		}
		if r.Checks["search"] != CheckDisabled {
			t.Errorf("expected search %q, got %q", CheckDisabled, r.Checks["search"])
		}
	}
}

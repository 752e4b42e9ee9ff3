package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/goclaw/livecheck/pkg/event"
)

// ContractSuite runs the same behavioural checks against any Store implementation.
type ContractSuite struct {
	NewStore func(t *testing.T) Store
}

// RunAll runs every contract test.
func (s *ContractSuite) RunAll(t *testing.T) {
	t.Run("GetMissing", s.TestGetMissing)
	t.Run("SetThenGet", s.TestSetThenGet)
	t.Run("LastWriteWins", s.TestLastWriteWins)
	t.Run("CaseIsolation", s.TestCaseIsolation)
	t.Run("KeysWithSeparators", s.TestKeysWithSeparators)
	t.Run("ConcurrentKeys", s.TestConcurrentKeys)
}

func mustEvent(t *testing.T, caseName, key, value string) *event.Event {
	t.Helper()
	ev, err := event.New("sig", caseName, key, []byte(value))
	if err != nil {
		t.Fatalf("event.New failed: %v", err)
	}
	return ev
}

// TestGetMissing checks that absent keys report ErrNotFound.
func (s *ContractSuite) TestGetMissing(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()

	_, err := st.Get(context.Background(), "case", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestSetThenGet checks a round trip.
func (s *ContractSuite) TestSetThenGet(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()
	ctx := context.Background()

	ev := mustEvent(t, "case", "k1", `"v1"`)
	if err := st.Set(ctx, "case", "k1", ev); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := st.Get(ctx, "case", "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != ev.ID || string(got.Value) != `"v1"` {
		t.Errorf("unexpected event %+v", got)
	}
}

// TestLastWriteWins checks overwrite semantics.
func (s *ContractSuite) TestLastWriteWins(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, "case", "k", mustEvent(t, "case", "k", `"v1"`)); err != nil {
		t.Fatalf("Set v1 failed: %v", err)
	}
	if err := st.Set(ctx, "case", "k", mustEvent(t, "case", "k", `"v2"`)); err != nil {
		t.Fatalf("Set v2 failed: %v", err)
	}

	got, err := st.Get(ctx, "case", "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Value) != `"v2"` {
		t.Errorf("expected v2, got %s", got.Value)
	}
}

// TestCaseIsolation checks that equal keys under different cases do not collide.
func (s *ContractSuite) TestCaseIsolation(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, "a", "k", mustEvent(t, "a", "k", `"from-a"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := st.Get(ctx, "b", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other case, got %v", err)
	}
}

// TestKeysWithSeparators checks keys that contain ':'.
func (s *ContractSuite) TestKeysWithSeparators(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, "case", "order:42:paid", mustEvent(t, "case", "order:42:paid", `1`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := st.Get(ctx, "case", "order:42:paid")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Key != "order:42:paid" {
		t.Errorf("unexpected key %q", got.Key)
	}
}

// TestConcurrentKeys checks that concurrent writers on distinct keys never conflict.
func (s *ContractSuite) TestConcurrentKeys(t *testing.T) {
	st := s.NewStore(t)
	defer st.Close()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%d", i)
			ev, err := event.New("sig", "case", key, []byte(fmt.Sprintf("%d", i)))
			if err != nil {
				errs <- err
				return
			}
			errs <- st.Set(ctx, "case", key, ev)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Set failed: %v", err)
		}
	}

	for i := 0; i < n; i++ {
		got, err := st.Get(ctx, "case", fmt.Sprintf("k-%d", i))
		if err != nil {
			t.Fatalf("Get k-%d failed: %v", i, err)
		}
		if string(got.Value) != fmt.Sprintf("%d", i) {
			t.Errorf("k-%d: unexpected value %s", i, got.Value)
		}
	}
}

package rotator

import (
	"errors"
	"sync"
	"testing"
)

func newTestRegistry(t *testing.T, proxies ...string) *Registry {
	t.Helper()
	r := NewRegistry()
	if _, _, err := r.CreateClient("acct1", "secret1", proxies); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return r
}

func TestRotateCycleReturnsToStart(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b", "5.6.7.8:200:c:d", "9.9.9.9:300:e:f")

	start, err := r.Current("acct1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	for i := 0; i < start.Total; i++ {
		if _, err := r.Rotate("acct1"); err != nil {
			t.Fatalf("rotate %d: %v", i, err)
		}
	}
	end, _ := r.Current("acct1")
	if end.Index != start.Index {
		t.Fatalf("expected cycle back to %d, got %d", start.Index, end.Index)
	}
}

func TestCurrentDoesNotMutate(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b", "5.6.7.8:200:c:d")
	for i := 0; i < 10; i++ {
		sel, err := r.Current("acct1")
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if sel.Index != 0 {
			t.Fatalf("current mutated cursor: %d", sel.Index)
		}
	}
}

func TestRotationScenario(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b", "5.6.7.8:200:c:d")

	sel, _ := r.Current("acct1")
	if sel.Index != 0 || sel.Proxy != "http://a:b@1.2.3.4:100" {
		t.Fatalf("unexpected initial selection: %+v", sel)
	}
	sel, _ = r.Rotate("acct1")
	if sel.Index != 1 || sel.Proxy != "http://c:d@5.6.7.8:200" {
		t.Fatalf("unexpected selection after rotate: %+v", sel)
	}
	sel, _ = r.Rotate("acct1")
	if sel.Index != 0 {
		t.Fatalf("expected wrap to 0, got %d", sel.Index)
	}
}

func TestAddProxyDuplicateRejected(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b")

	// 同一端点的另一种写法也要被识别为重复。
	if _, _, err := r.AddProxy("acct1", "http://a:b@1.2.3.4:100"); !errors.Is(err, ErrProxyExists) {
		t.Fatalf("expected ErrProxyExists, got %v", err)
	}
	sel, _ := r.Current("acct1")
	if sel.Total != 1 {
		t.Fatalf("list length changed: %d", sel.Total)
	}
}

func TestRemoveOnlyProxyResetsCursor(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b")

	if _, _, err := r.RemoveProxy("acct1", "1.2.3.4:100:a:b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := r.Current("acct1"); !errors.Is(err, ErrNoProxies) {
		t.Fatalf("expected ErrNoProxies, got %v", err)
	}
	if _, _, err := r.AddProxy("acct1", "5.6.7.8:200:c:d"); err != nil {
		t.Fatalf("add: %v", err)
	}
	sel, err := r.Current("acct1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if sel.Index != 0 || sel.Proxy != "http://c:d@5.6.7.8:200" {
		t.Fatalf("cursor not reset: %+v", sel)
	}
}

func TestRemoveBeforeCursorKeepsCurrentProxy(t *testing.T) {
	r := newTestRegistry(t, "1.1.1.1:1:a:a", "2.2.2.2:2:b:b", "3.3.3.3:3:c:c")
	r.Rotate("acct1")
	r.Rotate("acct1") // cursor -> 2 (3.3.3.3)

	if _, _, err := r.RemoveProxy("acct1", "1.1.1.1:1:a:a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	sel, _ := r.Current("acct1")
	if sel.Proxy != "http://c:c@3.3.3.3:3" || sel.Index != 1 {
		t.Fatalf("expected current proxy preserved at shifted index, got %+v", sel)
	}
}

func TestRemoveAtEndWrapsCursor(t *testing.T) {
	r := newTestRegistry(t, "1.1.1.1:1:a:a", "2.2.2.2:2:b:b")
	r.Rotate("acct1") // cursor -> 1

	if _, _, err := r.RemoveProxy("acct1", "2.2.2.2:2:b:b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	sel, _ := r.Current("acct1")
	if sel.Index != 0 || sel.Total != 1 {
		t.Fatalf("cursor out of range after shrink: %+v", sel)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b")

	count, err := r.DeleteClient("acct1")
	if err != nil || count != 1 {
		t.Fatalf("delete: count=%d err=%v", count, err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("client still listed after delete")
	}
	if _, err := r.Current("acct1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, err := r.Rotate("acct1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, err := r.DeleteClient("acct1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound on second delete, got %v", err)
	}
}

func TestCreateClientAtomicBatchRejection(t *testing.T) {
	r := NewRegistry()
	_, invalid, err := r.CreateClient("acct2", "pw", []string{
		"1.2.3.4:100:a:b",
		"garbage",
		"5.6.7.8:200:c:d",
	})
	if !errors.Is(err, ErrInvalidProxy) {
		t.Fatalf("expected ErrInvalidProxy, got %v", err)
	}
	if len(invalid) != 1 || invalid[0] != "garbage" {
		t.Fatalf("unexpected invalid list: %v", invalid)
	}
	// 整体拒绝：客户端不存在。
	if _, err := r.Current("acct2"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("client was partially created: %v", err)
	}
}

func TestCreateClientRejectsBatchDuplicates(t *testing.T) {
	r := NewRegistry()
	_, invalid, err := r.CreateClient("acct3", "pw", []string{
		"1.2.3.4:100:a:b",
		"http://a:b@1.2.3.4:100",
	})
	if !errors.Is(err, ErrInvalidProxy) {
		t.Fatalf("expected ErrInvalidProxy for in-batch duplicate, got %v", err)
	}
	if len(invalid) != 1 {
		t.Fatalf("unexpected invalid list: %v", invalid)
	}
}

func TestCreateClientNameTaken(t *testing.T) {
	r := newTestRegistry(t)
	if _, _, err := r.CreateClient("acct1", "other", nil); !errors.Is(err, ErrClientExists) {
		t.Fatalf("expected ErrClientExists, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	r := newTestRegistry(t)
	if !r.Authenticate("acct1", "secret1") {
		t.Fatalf("valid credentials rejected")
	}
	if r.Authenticate("acct1", "wrong") {
		t.Fatalf("wrong password accepted")
	}
	if r.Authenticate("nobody", "secret1") {
		t.Fatalf("unknown user accepted")
	}
}

func TestConcurrentRotations(t *testing.T) {
	const n = 3
	const k = 100
	r := newTestRegistry(t, "1.1.1.1:1:a:a", "2.2.2.2:2:b:b", "3.3.3.3:3:c:c")

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Rotate("acct1"); err != nil {
				t.Errorf("rotate: %v", err)
			}
		}()
	}
	wg.Wait()

	sel, err := r.Current("acct1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if want := k % n; sel.Index != want {
		t.Fatalf("lost or duplicated rotations: cursor=%d want %d", sel.Index, want)
	}
}

func TestListMasksSecrets(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b")
	infos := r.List()
	if len(infos) != 1 {
		t.Fatalf("expected 1 client, got %d", len(infos))
	}
	if infos[0].Secret == "secret1" {
		t.Fatalf("raw secret leaked in listing")
	}
	if infos[0].ProxyCount != 1 || infos[0].Cursor != 0 {
		t.Fatalf("unexpected summary: %+v", infos[0])
	}
}

func TestOverlappingProxies(t *testing.T) {
	r := newTestRegistry(t, "1.2.3.4:100:a:b")
	if _, _, err := r.CreateClient("acct2", "pw", []string{"1.2.3.4:100:a:b", "5.6.7.8:200:c:d"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := r.OverlappingProxies(); got != 1 {
		t.Fatalf("overlap = %d, want 1", got)
	}
}

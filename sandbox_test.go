package htmlentry

import "testing"

func TestGlobalSandboxKeysPreserveInsertionOrder(t *testing.T) {
	sb := NewGlobalSandbox()
	sb.Set("b", 1)
	sb.Set("a", 2)
	sb.Set("c", 3)
	sb.Set("a", 4) // rewrite must not reorder

	got := sb.Keys()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}

	if v, ok := sb.Get("a"); !ok || v != 4 {
		t.Errorf("Get(a) = %v, %v; want 4, true", v, ok)
	}
}

func TestGlobalSandboxDelete(t *testing.T) {
	sb := NewGlobalSandbox()
	sb.Set("a", 1)
	sb.Set("b", 2)
	sb.Delete("a")

	if sb.Has("a") {
		t.Error("deleted key still present")
	}
	keys := sb.Keys()
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("keys = %v, want [b]", keys)
	}

	sb.Delete("missing") // no-op
}

func TestExportPropertyPicksLastNewKey(t *testing.T) {
	sb := NewGlobalSandbox()
	sb.Set("preexisting", 1)
	before := snapshotKeys(sb)

	sb.Set("helper", 2)
	sb.Set("app", 3)

	name, ok := exportProperty(sb, before)
	if !ok {
		t.Fatal("no export property found")
	}
	if name != "app" {
		t.Errorf("export property = %q, want %q", name, "app")
	}
}

func TestExportPropertyNoneAdded(t *testing.T) {
	sb := NewGlobalSandbox()
	sb.Set("a", 1)
	before := snapshotKeys(sb)

	if name, ok := exportProperty(sb, before); ok {
		t.Errorf("unexpected export property %q", name)
	}
}

package repository

import "testing"

func TestDecodeDetails(t *testing.T) {
	got := decodeDetails([]byte(`{"task_id":"abc"}`))
	if got["task_id"] != "abc" {
		t.Fatalf("expected task_id abc, got %v", got)
	}

	for _, raw := range []string{"", "null", "{not json", `["a"]`} {
		got := decodeDetails([]byte(raw))
		if got == nil || len(got) != 0 {
			t.Fatalf("details %q: expected empty map, got %#v", raw, got)
		}
	}
}

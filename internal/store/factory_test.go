package store

import "testing"

func TestBackendTypeIsValid(t *testing.T) {
	cases := []struct {
		backend BackendType
		valid   bool
	}{
		{MemoryBackend, true},
		{SQLiteBackend, true},
		{"firestore", false},
		{"", false},
		{"SQLITE", false},
	}
	for _, tc := range cases {
		if got := tc.backend.IsValid(); got != tc.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tc.backend, got, tc.valid)
		}
	}
}

func TestBackendTypeString(t *testing.T) {
	if SQLiteBackend.String() != "sqlite" || MemoryBackend.String() != "memory" {
		t.Fatalf("unexpected backend names: %s, %s", SQLiteBackend, MemoryBackend)
	}
}

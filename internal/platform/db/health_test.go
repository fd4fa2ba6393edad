package db

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPoolGauges_Saturated(t *testing.T) {
	cases := []struct {
		name   string
		gauges PoolGauges
		want   bool
	}{
		{"idle pool", PoolGauges{InUse: 0, Max: 20}, false},
		{"partial use", PoolGauges{InUse: 12, Max: 20}, false},
		{"all in use", PoolGauges{InUse: 20, Max: 20}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.gauges.Saturated(); got != tc.want {
				t.Errorf("Saturated() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDBHealth_JSONShape(t *testing.T) {
	healthy := DBHealth{
		Status: "ok",
		PingMS: 3,
		Pool:   PoolGauges{Total: 5, Idle: 4, InUse: 1, Max: 20, WaitTime: "0s"},
	}

	data, err := json.Marshal(healthy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, key := range []string{`"status":"ok"`, `"ping_ms":3`, `"in_use":1`, `"empty_waits":0`} {
		if !strings.Contains(body, key) {
			t.Errorf("expected %s in payload, got %s", key, body)
		}
	}
	if strings.Contains(body, `"error"`) {
		t.Errorf("healthy payload must omit the error field, got %s", body)
	}
}

func TestDBHealth_UnreachableIncludesError(t *testing.T) {
	down := DBHealth{
		Status: "unreachable",
		Error:  "dial tcp: connection refused",
	}

	data, err := json.Marshal(down)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"error":"dial tcp: connection refused"`) {
		t.Errorf("expected error field in payload, got %s", data)
	}
}

package balancer

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRoundRobin(t *testing.T) {
	b := New([]string{"key-a", "key-b"}, 3, time.Minute, zap.NewNop())

	got := []string{}
	for i := 0; i < 4; i++ {
		key, err := b.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		got = append(got, key)
	}
	want := []string{"key-a", "key-b", "key-a", "key-b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestSidelineAfterFailures(t *testing.T) {
	b := New([]string{"key-a", "key-b"}, 2, time.Minute, zap.NewNop())

	b.ReportFailure("key-a")
	b.ReportFailure("key-a")
	if b.HealthyCount() != 1 {
		t.Fatalf("HealthyCount = %d, want 1", b.HealthyCount())
	}

	for i := 0; i < 3; i++ {
		key, err := b.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if key != "key-b" {
			t.Errorf("sidelined key was served: %s", key)
		}
	}
}

func TestAllSidelined(t *testing.T) {
	b := New([]string{"key-a"}, 1, time.Minute, zap.NewNop())
	b.ReportFailure("key-a")

	if _, err := b.Acquire(); err != ErrNoHealthyResource {
		t.Errorf("err = %v, want ErrNoHealthyResource", err)
	}
}

func TestCooldownReEnables(t *testing.T) {
	b := New([]string{"key-a"}, 1, time.Minute, zap.NewNop())

	current := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return current }

	b.ReportFailure("key-a")
	if _, err := b.Acquire(); err == nil {
		t.Fatal("key should be sidelined")
	}

	current = current.Add(2 * time.Minute)
	key, err := b.Acquire()
	if err != nil || key != "key-a" {
		t.Errorf("Acquire after cooldown = (%q, %v)", key, err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New([]string{"key-a"}, 2, time.Minute, zap.NewNop())

	b.ReportFailure("key-a")
	b.ReportSuccess("key-a")
	b.ReportFailure("key-a")

	if b.HealthyCount() != 1 {
		t.Error("intervening success should have reset the failure count")
	}
}

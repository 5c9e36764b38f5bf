package decision

import (
	"testing"
	"time"
)

func TestTrackerResolvesExactlyOnce(t *testing.T) {
	tracker := NewTracker()
	token, wait := tracker.Create(time.Minute)

	if !tracker.Choose(token, 1) {
		t.Fatal("first Choose should succeed")
	}
	if tracker.Choose(token, 0) {
		t.Error("second Choose should be a no-op")
	}
	if tracker.Default(token) {
		t.Error("Default after Choose should be a no-op")
	}

	res := <-wait
	if res.outcome != outcomeOption || res.option != 1 {
		t.Errorf("resolution = %+v", res)
	}
	if tracker.Pending() != 0 {
		t.Errorf("pending = %d", tracker.Pending())
	}
}

func TestTrackerTimeout(t *testing.T) {
	tracker := NewTracker()
	token, wait := tracker.Create(10 * time.Millisecond)

	select {
	case res := <-wait:
		if res.outcome != outcomeTimeout {
			t.Errorf("outcome = %v, want timeout", res.outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}

	if tracker.Choose(token, 0) {
		t.Error("Choose after timeout should be a no-op")
	}
}

func TestTrackerCancel(t *testing.T) {
	tracker := NewTracker()
	token, wait := tracker.Create(time.Minute)

	tracker.Cancel(token)
	if tracker.Pending() != 0 {
		t.Errorf("pending = %d", tracker.Pending())
	}
	if tracker.Default(token) {
		t.Error("Default after Cancel should be a no-op")
	}
	select {
	case res := <-wait:
		t.Errorf("unexpected resolution %+v after cancel", res)
	default:
	}
}

func TestTrackerUnknownToken(t *testing.T) {
	tracker := NewTracker()
	if tracker.Choose("missing", 0) {
		t.Error("Choose on unknown token should fail")
	}
	if tracker.Choose("missing", -1) {
		t.Error("negative option should fail")
	}
}

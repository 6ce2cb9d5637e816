package haltflag

import "testing"

func TestBumpProgression(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if Requested() {
		t.Fatalf("fresh counter must not report Requested")
	}
	Bump()
	if !Requested() || SkipCleanup() {
		t.Errorf("after one Bump: Requested=%v SkipCleanup=%v, want true/false", Requested(), SkipCleanup())
	}
	Bump()
	if !SkipCleanup() {
		t.Errorf("after two Bumps, SkipCleanup must be true")
	}
}

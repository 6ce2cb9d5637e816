package main

import (
	"testing"
)

func TestAnyModeSetDefaultsFalse(t *testing.T) {
	*modePath, *modeLib, *modeInclude, *modeMan, *modeCmake, *modePkg, *modeVcpkg = false, false, false, false, false, false, ""
	if anyModeSet() {
		t.Error("expected no mode set by default")
	}
	*modePath = true
	if !anyModeSet() {
		t.Error("expected modePath to count as a set mode")
	}
	*modePath = false
}

func TestEnvOrFallsBackWhenUnset(t *testing.T) {
	t.Setenv("ENVTOOL_TEST_VAR", "")
	if got := envOr("ENVTOOL_TEST_VAR_UNSET_XYZ", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	t.Setenv("ENVTOOL_TEST_VAR", "value")
	if got := envOr("ENVTOOL_TEST_VAR", "fallback"); got != "value" {
		t.Errorf("got %q, want value", got)
	}
}

func TestDirExists(t *testing.T) {
	if !dirExists(t.TempDir()) {
		t.Error("expected an existing temp dir to be reported as existing")
	}
	if dirExists("/does/not/exist/envtool-test") {
		t.Error("expected a missing path to be reported as absent")
	}
}

func TestStatMTimeMissingFile(t *testing.T) {
	if _, ok := statMTime("/does/not/exist/envtool-test-file"); ok {
		t.Error("expected ok=false for a missing file")
	}
}

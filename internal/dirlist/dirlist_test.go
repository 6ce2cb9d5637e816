package dirlist

import "testing"

func TestSplitDuplicateAccounting(t *testing.T) {
	// S1 from spec.md §8: PATH search with a repeated entry.
	value := `C:\WINDOWS;C:\WINDOWS\system32;C:\WINDOWS\system32;`
	list := Split("PATH", value, Options{})

	if len(list.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(list.Entries))
	}
	if list.Entries[0].DuplicateCount != 0 {
		t.Errorf("first entry should have DuplicateCount 0")
	}
	if list.Entries[1].DuplicateCount != 0 {
		t.Errorf("second (distinct) entry should have DuplicateCount 0")
	}
	if list.Entries[2].DuplicateCount != 1 {
		t.Errorf("third entry (second copy of system32) should have DuplicateCount 1, got %d", list.Entries[2].DuplicateCount)
	}

	var dupWarnings int
	for _, w := range list.Warnings {
		if w.Kind == WarnDuplicate {
			dupWarnings++
		}
	}
	if dupWarnings != 1 {
		t.Errorf("expected exactly one duplicate warning, got %d", dupWarnings)
	}
}

func TestSplitInvariantEveryEarlierDuplicateCounted(t *testing.T) {
	value := `c:\a;c:\b;c:\a;c:\a;c:\b`
	list := Split("PATH", value, Options{})
	for i, e := range list.Entries {
		count := 0
		for j := 0; j < i; j++ {
			if list.Entries[j].Path.Canonical() == e.Path.Canonical() {
				count++
			}
		}
		if e.DuplicateCount != count {
			t.Errorf("entry %d: DuplicateCount = %d, want %d", i, e.DuplicateCount, count)
		}
	}
}

func TestSplitExpansionNotOK(t *testing.T) {
	list := Split("INCLUDE", `%NOPE%\include`, Options{})
	if len(list.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(list.Entries))
	}
	if list.Entries[0].ExpansionOK() {
		t.Errorf("expected ExpansionOK() == false for unresolved %%NOPE%%")
	}
	found := false
	for _, w := range list.Warnings {
		if w.Kind == WarnExpansionFailed {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a WarnExpansionFailed warning")
	}
}

func TestSplitBareDriveLetterWarns(t *testing.T) {
	list := Split("PATH", `c:;d:\tools`, Options{})
	found := false
	for _, w := range list.Warnings {
		if w.Kind == WarnBareDriveLetter {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a WarnBareDriveLetter warning for bare 'c:'")
	}
}

func TestSplitCWDTokenNormalized(t *testing.T) {
	for _, tok := range []string{".", `.\`, "./"} {
		list := Split("PATH", tok, Options{})
		if len(list.Entries) != 1 {
			t.Fatalf("token %q: got %d entries, want 1", tok, len(list.Entries))
		}
	}
}

func TestUniquifyKeepsFirstOccurrence(t *testing.T) {
	list := Split("PATH", `c:\a;c:\b;c:\a`, Options{})
	Uniquify(list, false)
	if len(list.Entries) != 2 {
		t.Fatalf("got %d entries after Uniquify, want 2", len(list.Entries))
	}
	if list.Entries[0].Path.Canonical() != `c:\a` || list.Entries[1].Path.Canonical() != `c:\b` {
		t.Errorf("Uniquify reordered entries: %+v", list.Entries)
	}
}

func TestAppendCWDIfAbsent(t *testing.T) {
	list := Split("PATH", `c:\a`, Options{})
	AppendCWDIfAbsent(list, Options{})
	if len(list.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(list.Entries))
	}
	if !list.Entries[0].IsCWD {
		t.Errorf("expected the prepended entry to be marked IsCWD")
	}

	// Calling it again must not duplicate the CWD entry.
	AppendCWDIfAbsent(list, Options{})
	if len(list.Entries) != 2 {
		t.Errorf("AppendCWDIfAbsent should be a no-op when '.' is already present, got %d entries", len(list.Entries))
	}
}

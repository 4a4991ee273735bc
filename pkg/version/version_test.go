package version

import "testing"

func TestParseReleaseRoundTrip(t *testing.T) {
	r, err := ParseRelease("v25.1.2.3")
	if err != nil {
		t.Fatalf("ParseRelease() error = %v", err)
	}
	want := &Release{Year: 25, Major: 1, Minor: 2, Patch: 3}
	if *r != *want {
		t.Fatalf("ParseRelease() = %+v, want %+v", r, want)
	}
	if r.String() != "25.1.2.3" {
		t.Fatalf("String() = %q, want %q", r.String(), "25.1.2.3")
	}
}

func TestParseReleaseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "25.1.2", "abc.1.2.3", "1.1.2.3", "25.1.2.3.4"} {
		if _, err := ParseRelease(s); err == nil {
			t.Errorf("ParseRelease(%q) succeeded, want error", s)
		}
	}
}

func TestReleaseCompare(t *testing.T) {
	older := &Release{Year: 25, Major: 1, Minor: 0, Patch: 0}
	newer := &Release{Year: 25, Major: 2, Minor: 0, Patch: 0}

	if older.Compare(newer) != -1 {
		t.Errorf("older.Compare(newer) = %d, want -1", older.Compare(newer))
	}
	if newer.Compare(older) != 1 {
		t.Errorf("newer.Compare(older) = %d, want 1", newer.Compare(older))
	}
	if older.Compare(older) != 0 {
		t.Errorf("older.Compare(older) = %d, want 0", older.Compare(older))
	}
}

func TestGetParsedReleaseRequiresVersion(t *testing.T) {
	prev := Version
	defer func() { Version = prev }()

	Version = ""
	if _, err := GetParsedRelease(); err == nil {
		t.Error("GetParsedRelease() with empty Version succeeded, want error")
	}

	Version = "25.3.0.1"
	r, err := GetParsedRelease()
	if err != nil {
		t.Fatalf("GetParsedRelease() error = %v", err)
	}
	if r.Major != 3 {
		t.Errorf("r.Major = %d, want 3", r.Major)
	}
}

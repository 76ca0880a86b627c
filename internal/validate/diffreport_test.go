package validate

import "testing"

func validReport() DiffReport {
	return DiffReport{
		Version:   1,
		SourceDir: "/src/project",
		Skipped: []SkippedEntry{
			{Path: "com/acme/Foo.java", Hash: "a3f8b0c1d2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9"},
		},
		Reanalyzed: []ReanalyzeEntry{
			{
				Path:         "com/acme/Bar.java",
				PreviousHash: "111111111111111111111111111111111111111111111111111111111111111a",
				CurrentHash:  "222222222222222222222222222222222222222222222222222222222222222b",
				Patch:        "--- a/com/acme/Bar.java\n+++ b/com/acme/Bar.java\n",
				Oversize:     false,
			},
		},
	}
}

func TestDiffReportJSONAcceptsValidReport(t *testing.T) {
	if err := DiffReportJSON(validReport()); err != nil {
		t.Errorf("DiffReportJSON(valid) = %v, want nil", err)
	}
}

func TestDiffReportJSONRejectsBadHash(t *testing.T) {
	r := validReport()
	r.Skipped[0].Hash = "not-a-hash"
	if err := DiffReportJSON(r); err == nil {
		t.Error("DiffReportJSON accepted a non-hex hash, want error")
	}
}

func TestDiffReportJSONRejectsEmptyPath(t *testing.T) {
	r := validReport()
	r.Reanalyzed[0].Path = ""
	if err := DiffReportJSON(r); err == nil {
		t.Error("DiffReportJSON accepted an empty path, want error")
	}
}

func TestDiffReportJSONRejectsMissingCurrentHash(t *testing.T) {
	r := validReport()
	r.Reanalyzed[0].CurrentHash = ""
	if err := DiffReportJSON(r); err == nil {
		t.Error("DiffReportJSON accepted a missing currentHash, want error")
	}
}

func TestDiffReportJSONAllowsEmptyCollections(t *testing.T) {
	r := DiffReport{
		Version:    1,
		SourceDir:  "/src/project",
		Skipped:    []SkippedEntry{},
		Reanalyzed: []ReanalyzeEntry{},
	}
	if err := DiffReportJSON(r); err != nil {
		t.Errorf("DiffReportJSON(empty collections) = %v, want nil", err)
	}
}

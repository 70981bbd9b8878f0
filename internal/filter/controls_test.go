// ABOUTME: Unit tests for the generic and report control extractors.
package filter_test

import (
	"testing"

	"github.com/varden/scanmgr/internal/filter"
)

func TestGenericControls_Defaults(t *testing.T) {
	t.Parallel()
	pc := filter.GenericControls(nil, nil)
	if pc.Offset != 1 || pc.Limit != -2 || pc.SortField != "name" || !pc.Ascending {
		t.Errorf("defaults = %+v", pc)
	}
}

func TestGenericControls_FirstKeywordsWin(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("first=5 rows=20 sort-reverse=created first=9 sort=name")
	pc := filter.GenericControls(terms, nil)
	// The 1-based offset is not decremented here, unlike the compiler.
	if pc.Offset != 5 {
		t.Errorf("Offset = %d, want 5", pc.Offset)
	}
	if pc.Limit != 20 {
		t.Errorf("Limit = %d, want 20", pc.Limit)
	}
	if pc.SortField != "created" || pc.Ascending {
		t.Errorf("sort = %q asc=%v, want created descending", pc.SortField, pc.Ascending)
	}
}

func TestGenericControls_RowsSentinel(t *testing.T) {
	t.Parallel()
	pc := filter.GenericControls(filter.Parse("rows=-2"), func() int64 { return 30 })
	if pc.Limit != 30 {
		t.Errorf("Limit = %d, want resolved default 30", pc.Limit)
	}
}

func TestReportControls_Defaults(t *testing.T) {
	t.Parallel()
	rc := filter.ReportControlsFrom(nil, nil)
	if rc.Offset != 0 || rc.Limit != 100 {
		t.Errorf("pagination defaults = offset %d limit %d", rc.Offset, rc.Limit)
	}
	if !rc.ResultHostsOnly || !rc.Notes || !rc.Overrides || !rc.ApplyOverrides {
		t.Errorf("toggle defaults = %+v", rc)
	}
	if rc.MinQoD != 0 || rc.Levels != "" || rc.Timezone != "" {
		t.Errorf("unset defaults = %+v", rc)
	}
}

func TestReportControls_OffsetAgreesWithCompiler(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("first=5")
	rc := filter.ReportControlsFrom(terms, nil)
	c := filter.Compile(filter.ResourceReport, terms, nil, filter.Options{})
	if rc.Offset != 4 || c.Offset != 4 {
		t.Errorf("offsets disagree: controls %d, compiler %d, want 4", rc.Offset, c.Offset)
	}
}

func TestReportControls_Toggles(t *testing.T) {
	t.Parallel()
	terms := filter.Parse("result_hosts_only=0 min_qod=70 levels=hml notes=0 overrides=0 timezone=UTC delta_states=cgn")
	rc := filter.ReportControlsFrom(terms, nil)
	if rc.ResultHostsOnly || rc.Notes || rc.Overrides {
		t.Errorf("toggles not disabled: %+v", rc)
	}
	if rc.ApplyOverrides {
		t.Error("ApplyOverrides should follow overrides when unspecified")
	}
	if rc.MinQoD != 70 || rc.Levels != "hml" || rc.Timezone != "UTC" || rc.DeltaStates != "cgn" {
		t.Errorf("values = %+v", rc)
	}
}

func TestReportControls_ApplyOverridesExplicit(t *testing.T) {
	t.Parallel()
	rc := filter.ReportControlsFrom(filter.Parse("overrides=0 apply_overrides=1"), nil)
	if !rc.ApplyOverrides || rc.Overrides {
		t.Errorf("explicit apply_overrides ignored: %+v", rc)
	}
}

func TestReportControls_SearchPhrase(t *testing.T) {
	t.Parallel()
	rc := filter.ReportControlsFrom(filter.Parse(`ssh and =exact "remote code"`), nil)
	if want := "ssh exact remote code"; rc.SearchPhrase != want {
		t.Errorf("SearchPhrase = %q, want %q", rc.SearchPhrase, want)
	}
	if !rc.SearchPhraseExact {
		t.Error("SearchPhraseExact = false, want true (one exact contributor)")
	}
}

// ABOUTME: Convenience extractors over a term sequence: generic pagination/sort
// ABOUTME: defaults and the report-specific toggle set (QoD, levels, overrides, phrase).
package filter

import (
	"strings"
)

// PageControls are the generic pagination and sort defaults for a filter.
// Offset stays 1-based here, unlike the compiler's 0-based offset.
type PageControls struct {
	Offset    int64
	Limit     int64
	SortField string
	Ascending bool
}

// GenericControls scans for the first first, rows and sort/sort-reverse
// keywords. An empty term sequence yields the fixed defaults: first page,
// the rows default sentinel, name ascending.
func GenericControls(terms []Term, defaultRows func() int64) PageControls {
	pc := PageControls{Offset: 1, Limit: -2, SortField: "name", Ascending: true}
	if len(terms) == 0 {
		return pc
	}
	var haveFirst, haveRows, haveSort bool
	for _, t := range terms {
		switch t.Column {
		case "first":
			if !haveFirst {
				pc.Offset = t.ParseInt()
				haveFirst = true
			}
		case "rows":
			if !haveRows {
				pc.Limit = t.ParseInt()
				if pc.Limit == -2 && defaultRows != nil {
					pc.Limit = defaultRows()
				}
				haveRows = true
			}
		case "sort", "sort-reverse":
			if !haveSort {
				pc.SortField = t.Text
				pc.Ascending = t.Column == "sort"
				haveSort = true
			}
		}
	}
	return pc
}

// ReportControls are the report-specific views over a filter: pagination,
// search phrase, and the result-rendering toggles.
type ReportControls struct {
	Offset    int64 // 0-based
	Limit     int64
	SortField string
	Ascending bool

	ResultHostsOnly   bool
	MinQoD            int64
	Levels            string
	ComplianceLevels  string
	DeltaStates       string
	SearchPhrase      string
	SearchPhraseExact bool
	Notes             bool
	Overrides         bool
	ApplyOverrides    bool
	Timezone          string
}

// ReportControlsFrom extracts the report toggles from a term sequence.
// result_hosts_only, notes and overrides default to enabled; apply_overrides
// falls back to the overrides value when not separately specified; the rest
// default to unset/all. The default page size is 100.
func ReportControlsFrom(terms []Term, defaultRows func() int64) ReportControls {
	rc := ReportControls{
		Limit:           100,
		SortField:       "name",
		Ascending:       true,
		ResultHostsOnly: true,
		Notes:           true,
		Overrides:       true,
	}
	var haveApply bool
	var phrase []string

	for _, t := range terms {
		if t.Column == "" {
			if t.Connective() {
				continue
			}
			phrase = append(phrase, t.Text)
			if t.ExactBare {
				rc.SearchPhraseExact = true
			}
			continue
		}
		switch t.Column {
		case "first":
			rc.Offset = t.ParseInt() - 1
			if rc.Offset < 0 {
				rc.Offset = 0
			}
		case "rows":
			rc.Limit = t.ParseInt()
			if rc.Limit == -2 {
				if defaultRows != nil {
					rc.Limit = defaultRows()
				} else {
					rc.Limit = -1
				}
			}
		case "sort", "sort-reverse":
			rc.SortField = t.Text
			rc.Ascending = t.Column == "sort"
		case "result_hosts_only":
			rc.ResultHostsOnly = t.ParseInt() != 0
		case "min_qod":
			rc.MinQoD = t.ParseInt()
		case "levels":
			rc.Levels = t.Text
		case "compliance_levels":
			rc.ComplianceLevels = t.Text
		case "delta_states":
			rc.DeltaStates = t.Text
		case "timezone":
			rc.Timezone = t.Text
		case "notes":
			rc.Notes = t.ParseInt() != 0
		case "overrides":
			rc.Overrides = t.ParseInt() != 0
		case "apply_overrides":
			rc.ApplyOverrides = t.ParseInt() != 0
			haveApply = true
		}
	}

	if !haveApply {
		rc.ApplyOverrides = rc.Overrides
	}
	rc.SearchPhrase = strings.Join(phrase, " ")
	return rc
}

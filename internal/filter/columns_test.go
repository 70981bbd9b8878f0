// ABOUTME: Registry consistency checks: every allow-listed name must resolve
// ABOUTME: to a column so the compiler's sort path can never hit its panic.
package filter_test

import (
	"testing"

	"github.com/varden/scanmgr/internal/filter"
)

var allResources = []filter.Resource{
	filter.ResourceTask, filter.ResourceReport, filter.ResourceResult,
	filter.ResourceTarget, filter.ResourceScanner, filter.ResourceSchedule,
	filter.ResourceNote, filter.ResourceOverride, filter.ResourceHost,
	filter.ResourceOS, filter.ResourceTag, filter.ResourceFilter,
	filter.ResourcePermission, filter.ResourceUser,
}

func TestRegistry_EveryAllowListedNameResolves(t *testing.T) {
	t.Parallel()
	for _, res := range allResources {
		for _, trash := range []bool{false, true} {
			reg := filter.RegistryFor(res, trash)
			if reg == nil {
				t.Fatalf("%s (trash=%v): no registry", res, trash)
			}
			for _, name := range reg.Filterable {
				if _, ok := reg.Lookup(name); !ok {
					t.Errorf("%s (trash=%v): allow-listed %q does not resolve", res, trash, name)
				}
			}
		}
	}
}

func TestRegistry_ResourceNamesRoundTrip(t *testing.T) {
	t.Parallel()
	for _, res := range allResources {
		got, ok := filter.ResourceByName(res.String())
		if !ok || got != res {
			t.Errorf("ResourceByName(%q) = %v %v", res.String(), got, ok)
		}
	}
	if _, ok := filter.ResourceByName("gadget"); ok {
		t.Error("unknown resource name resolved")
	}
}

func TestRegistry_TrashFallsBackToLive(t *testing.T) {
	t.Parallel()
	// Scanners have no trash variant; the live registry serves both.
	live := filter.RegistryFor(filter.ResourceScanner, false)
	trash := filter.RegistryFor(filter.ResourceScanner, true)
	if live != trash {
		t.Error("trash registry for scanner should fall back to live")
	}
	// Tasks do have one, and it is narrower.
	if filter.RegistryFor(filter.ResourceTask, true) == filter.RegistryFor(filter.ResourceTask, false) {
		t.Error("task trash registry should differ from live")
	}
}

// Package extensiontest holds assertions shared by extension tests.
package extensiontest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
)

// Valid checks that ext resolved its options as base defaults, then
// spec defaults, then caller, and that every handler key is invocable
// with no subscribers.
func Valid(t testing.TB, ext extension.Extension, spec option.Spec, caller option.Values) {
	t.Helper()

	want := option.BaseDefaults()
	for k, v := range spec.Defaults {
		want[k] = v
	}
	for k, v := range caller {
		if !spec.IsHandler(k) {
			want[k] = v
		}
	}

	got := ext.Options()
	for _, key := range spec.HandlerKeys {
		fn, ok := got[key].(handler.Func)
		if !ok || fn == nil {
			t.Errorf("%s: handler %q = %T, want handler.Func", ext.Name(), key, got[key])
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("%s: default handler %q panicked: %v", ext.Name(), key, r)
				}
			}()
			fn(nil)
		}()
	}

	if diff := cmp.Diff(map[string]any(want), map[string]any(got.Omit(spec.HandlerKeys...)), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("%s: Options() mismatch (-want +got):\n%s", ext.Name(), diff)
	}
}

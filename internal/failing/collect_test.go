package failing_test

import (
	"testing"

	"github.com/CZERTAINLY/Repairer/internal/failing"
	"github.com/CZERTAINLY/Repairer/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    model.FailureRecord
		then     []string
		errors   int
	}{
		{
			"single",
			model.FailureRecord{"moduleA": {"com.x.FooTest:testBar": "AssertionError"}},
			[]string{"com.x.FooTest"},
			0,
		},
		{
			"malformed",
			model.FailureRecord{"moduleA": {"badid": "Error"}},
			nil,
			1,
		},
		{
			"dedup",
			model.FailureRecord{
				"moduleA": {"com.x.FooTest:testBar": "AssertionError", "com.x.FooTest:testBaz": "NullPointerException"},
				"moduleB": {"com.x.FooTest:testQux": "AssertionError", "com.y.BarTest:testA": "Error"},
			},
			[]string{"com.x.FooTest", "com.y.BarTest"},
			0,
		},
		{
			"mixed",
			model.FailureRecord{
				"moduleA": {"a.ATest:m": "Error", "too:many:parts": "Error", ":noclass": "Error"},
				"moduleB": {"nomethod": "Error"},
			},
			[]string{"a.ATest"},
			3,
		},
		{
			"empty parts",
			model.FailureRecord{"moduleA": {":m": "Error", "Foo:": "Error", ":": "Error", "a:b:": "Error", "ok.OkTest:m": "Error"}},
			[]string{"ok.OkTest"},
			4,
		},
		{
			"empty",
			model.FailureRecord{},
			nil,
			0,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			var diag model.Diagnostics
			tests := failing.Collect(t.Context(), tt.given, &diag)
			require.Equal(t, len(tt.then), tests.Len())
			if tt.then != nil {
				require.Equal(t, tt.then, tests.Sorted())
			}
			require.Equal(t, tt.errors, diag.Len())
		})
	}
}

func TestCollect_Message(t *testing.T) {
	t.Parallel()
	var diag model.Diagnostics
	_ = failing.Collect(t.Context(), model.FailureRecord{"moduleA": {"badid": "Error"}}, &diag)
	require.Equal(t, []string{"error while splitting test name: badid: it won't be considered for repair"}, diag.Errors())
}

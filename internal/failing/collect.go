// Package failing turns the failure record of the test diagnostic step into
// the set of failing test classes handed to the repair engine.
package failing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CZERTAINLY/Repairer/internal/model"
)

// Separator splits a composite test id into class and method.
const Separator = ":"

// Collect returns the deduplicated class names of all failing tests in rec.
// Ids which do not split into exactly two non empty parts are reported to
// diag once per occurrence and skipped.
func Collect(ctx context.Context, rec model.FailureRecord, diag *model.Diagnostics) model.TestIdentifierSet {
	tests := model.NewTestIdentifierSet()
	for group, failures := range rec {
		for id := range failures {
			parts := strings.Split(id, Separator)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				diag.Add(ctx,
					fmt.Sprintf("error while splitting test name: %s: it won't be considered for repair", id),
					"group", group,
				)
				continue
			}
			tests.Add(parts[0])
		}
	}
	slog.DebugContext(ctx, "failing tests collected", "tests", tests.Len())
	return tests
}

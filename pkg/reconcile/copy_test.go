// pkg/reconcile/copy_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: The copy decision table over tracked, source and destination times

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideCopy(t *testing.T) {
	tests := []struct {
		name       string
		hasTracked bool
		tracked    int64
		src        int64
		dst        int64
		want       copyAction
	}{
		{name: "first sighting", hasTracked: false, src: 10, dst: 20, want: copyAdopt},
		{name: "first sighting equal", hasTracked: false, src: 10, dst: 10, want: copyAdopt},
		{name: "nothing moved", hasTracked: true, tracked: 10, src: 10, dst: 10, want: copyUnchanged},
		{name: "destination caught up", hasTracked: true, tracked: 5, src: 10, dst: 10, want: copyConverged},
		{name: "source newer", hasTracked: true, tracked: 10, src: 20, dst: 10, want: copyRefresh},
		{name: "source older", hasTracked: true, tracked: 10, src: 5, dst: 10, want: copyConflict},
		{name: "destination edited", hasTracked: true, tracked: 10, src: 10, dst: 30, want: copyConflict},
		{name: "both moved", hasTracked: true, tracked: 10, src: 20, dst: 30, want: copyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideCopy(tt.hasTracked, tt.tracked, tt.src, tt.dst)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

// A refreshed file must not be refreshed again on the next run.
func TestDecideCopyIsMonotonic(t *testing.T) {
	const src, dst = 20, 10
	assert.Equal(t, copyRefresh, decideCopy(true, dst, src, dst))
	// after the copy the destination carries the source time
	assert.Equal(t, copyUnchanged, decideCopy(true, src, src, src))
}

// SPDX-License-Identifier: MPL-2.0

package postprocess

import (
	"time"

	"rcbuild/pkg/fstime"
)

// NormalizeTimestamps sets the modification time of every file under root
// to t, or to clock.Now() when t is zero. Deployment staging uses it so the
// uploaded tree carries one consistent time. It returns the number of files
// touched.
func NormalizeTimestamps(root string, t time.Time, clock fstime.Clock) (int, error) {
	if t.IsZero() {
		if clock == nil {
			clock = fstime.RealClock{}
		}
		t = clock.Now()
	}
	return fstime.TouchTree(root, t)
}

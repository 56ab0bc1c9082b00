// services/ranking.go
package services

import (
	"sort"

	"playmap/common"
)

// DefaultTopTasks caps the slowest-tasks report.
const DefaultTopTasks = 20

// TopTasks flattens every task with a known duration, sorts descending,
// and truncates to n (the default cap when n <= 0). Tasks without a
// duration never rank; the sort is stable so ties keep encounter order.
func TopTasks(run *common.Run, n int) []common.RankedTask {
	if n <= 0 {
		n = DefaultTopTasks
	}
	ranked := []common.RankedTask{}
	for _, play := range run.Plays {
		for _, task := range play.Tasks {
			if task.DurationSeconds == nil {
				continue
			}
			ranked = append(ranked, common.RankedTask{
				Play:            play.Name,
				Task:            task.Name,
				DurationSeconds: *task.DurationSeconds,
			})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DurationSeconds > ranked[j].DurationSeconds
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// services/mindmap.go
package services

import (
	"fmt"
	"strconv"
	"strings"

	"playmap/common"
)

// Node IDs are path positions, not random. Identical input must yield
// identical topology, and the frontend keys collapse state on node ID.

func playNodeID(i int) string { return fmt.Sprintf("play-%d", i) }

func taskNodeID(i, j int) string { return fmt.Sprintf("play-%d/task-%d", i, j) }

func hostNodeID(i, j, k int) string { return fmt.Sprintf("play-%d/task-%d/host-%d", i, j, k) }

func taskLabel(j int, name string) string { return fmt.Sprintf("%02d. %s", j+1, name) }

// BuildGraph emits one node per play, task, and host result, with
// play->task and task->host edges, in input order.
func BuildGraph(run *common.Run) ([]common.Node, []common.Edge) {
	nodes := []common.Node{}
	edges := []common.Edge{}
	for i, play := range run.Plays {
		pid := playNodeID(i)
		nodes = append(nodes, common.Node{ID: pid, Label: play.Name, Title: play.Name, Group: "play"})
		for j, task := range play.Tasks {
			tid := taskNodeID(i, j)
			nodes = append(nodes, common.Node{ID: tid, Label: taskLabel(j, task.Name), Title: taskTitle(task), Group: "task"})
			edges = append(edges, common.Edge{From: pid, To: tid})
			for k, hr := range task.Hosts {
				nodes = append(nodes, common.Node{
					ID:    hostNodeID(i, j, k),
					Label: hr.Host,
					Title: hostTitle(hr),
					Group: "host-" + string(hr.Status),
				})
				edges = append(edges, common.Edge{From: tid, To: hostNodeID(i, j, k)})
			}
		}
	}
	return nodes, edges
}

// BuildNested expresses the same hierarchy as a directly serializable
// forest, one tree per play, traversed in the same order as BuildGraph.
func BuildNested(run *common.Run) []*common.NestedNode {
	nested := []*common.NestedNode{}
	for i, play := range run.Plays {
		pn := &common.NestedNode{ID: playNodeID(i), Label: play.Name, Group: "play", Children: []*common.NestedNode{}}
		for j, task := range play.Tasks {
			tn := &common.NestedNode{ID: taskNodeID(i, j), Label: taskLabel(j, task.Name), Group: "task", Children: []*common.NestedNode{}}
			for k, hr := range task.Hosts {
				tn.Children = append(tn.Children, &common.NestedNode{
					ID:       hostNodeID(i, j, k),
					Label:    hr.Host,
					Group:    "host-" + string(hr.Status),
					Children: []*common.NestedNode{},
				})
			}
			pn.Children = append(pn.Children, tn)
		}
		nested = append(nested, pn)
	}
	return nested
}

// BuildMarkdown renders the hierarchy as an indented bullet list, same
// traversal order as the graph. Durations and statuses ride along in
// parentheses so the text view stands on its own.
func BuildMarkdown(run *common.Run) string {
	var b strings.Builder
	for _, play := range run.Plays {
		b.WriteString("- " + play.Name + "\n")
		for j, task := range play.Tasks {
			b.WriteString("  - " + taskLabel(j, task.Name))
			if task.DurationSeconds != nil {
				b.WriteString(fmt.Sprintf(" (%ss)", formatSeconds(*task.DurationSeconds)))
			}
			b.WriteString("\n")
			for _, hr := range task.Hosts {
				b.WriteString(fmt.Sprintf("    - %s (%s)\n", hr.Host, hr.Status))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// DeriveRecap returns the run's parsed recap, or reconstructs per-host
// counters from the tree when the input carried none. Matching the
// ansible convention, ok also counts changed results.
func DeriveRecap(run *common.Run) map[string]map[string]int {
	if len(run.Recap) > 0 {
		return run.Recap
	}
	counters := map[string]map[string]int{}
	for _, play := range run.Plays {
		for _, task := range play.Tasks {
			for _, hr := range task.Hosts {
				row := counters[hr.Host]
				if row == nil {
					row = map[string]int{
						"ok": 0, "changed": 0, "unreachable": 0, "failed": 0,
						"skipped": 0, "rescued": 0, "ignored": 0,
					}
					counters[hr.Host] = row
				}
				switch hr.Status {
				case common.StatusChanged:
					row["ok"]++
					row["changed"]++
				default:
					row[string(hr.Status)]++
				}
			}
		}
	}
	if len(counters) == 0 {
		return nil
	}
	return counters
}

// Counts tallies the tree for response metadata and logs.
func Counts(run *common.Run) (plays, tasks, hosts int) {
	plays = len(run.Plays)
	for _, play := range run.Plays {
		tasks += len(play.Tasks)
		for _, task := range play.Tasks {
			hosts += len(task.Hosts)
		}
	}
	return plays, tasks, hosts
}

func taskTitle(t common.Task) string {
	if t.DurationSeconds == nil {
		return t.Name
	}
	return fmt.Sprintf("%s (%ss)", t.Name, formatSeconds(*t.DurationSeconds))
}

func hostTitle(hr common.HostResult) string {
	title := string(hr.Status)
	if meaning, ok := common.StatusMeanings[hr.Status]; ok {
		title = meaning
	}
	if hr.Detail != "" {
		title += ": " + hr.Detail
	}
	return title
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// services/ingest_text.go
package services

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"playmap/common"
)

// hostRef points at one host result by position so a later line (the
// "...ignoring" marker) can amend it. Indices stay valid across appends.
type hostRef struct{ p, t, h int }

func (r hostRef) valid() bool { return r.p >= 0 }

// NormalizeText runs the line grammar over classic ansible-playbook
// console output. Unrecognized lines are skipped, orphan lines (a task
// before any play, a host result before any task) are dropped, and a
// log with nothing recognizable yields an empty run.
func NormalizeText(data []byte, ps *PatternSet) *common.Run {
	run := &common.Run{Plays: []common.Play{}}
	var recap map[string]map[string]int

	curPlay, curTask := -1, -1
	lastHost := hostRef{p: -1, t: -1, h: -1}
	inRecap := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if inRecap {
			// A fresh play header ends the recap block (concatenated
			// logs); anything else in it is treated as a counters row.
			if ps.Play.MatchString(line) {
				inRecap = false
			} else {
				parseRecapRow(line, &recap)
				continue
			}
		}

		if ps.Recap.MatchString(line) {
			inRecap = true
			continue
		}

		if m := ps.Play.FindStringSubmatch(line); m != nil {
			name := CleanLabel(m[1])
			if name == "" {
				name = fmt.Sprintf("Play %d", len(run.Plays)+1)
			}
			run.Plays = append(run.Plays, common.Play{Name: name, Tasks: []common.Task{}})
			curPlay = len(run.Plays) - 1
			curTask = -1
			continue
		}

		if m := firstMatch(line, ps.Task, ps.Handler); m != nil {
			if curPlay < 0 {
				continue
			}
			task := common.Task{Hosts: []common.HostResult{}}
			task.Name = CleanLabel(m[1])
			if task.Name == "" {
				task.Name = fmt.Sprintf("Task %d", len(run.Plays[curPlay].Tasks)+1)
			}
			if dm := ps.Duration.FindStringSubmatch(line); dm != nil {
				if n, err := strconv.ParseFloat(dm[1], 64); err == nil && n >= 0 {
					task.DurationSeconds = &n
				}
			}
			run.Plays[curPlay].Tasks = append(run.Plays[curPlay].Tasks, task)
			curTask = len(run.Plays[curPlay].Tasks) - 1
			continue
		}

		if strings.HasPrefix(line, "...ignoring") {
			if lastHost.valid() {
				run.Plays[lastHost.p].Tasks[lastHost.t].Hosts[lastHost.h].Status = common.StatusIgnored
			}
			continue
		}

		if m := ps.Host.FindStringSubmatch(line); m != nil {
			if curTask < 0 {
				continue
			}
			lastHost = applyHostLine(run, curPlay, curTask, m)
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		common.WarnLog("ingest: text scan stopped early: %v", err)
	}

	if len(recap) > 0 {
		run.Recap = recap
	}
	return run
}

func firstMatch(line string, res ...*regexp.Regexp) []string {
	for _, re := range res {
		if m := re.FindStringSubmatch(line); m != nil {
			return m
		}
	}
	return nil
}

// applyHostLine records one "status: [host] ..." line. Loop output and
// retries repeat a host within a task; the final line wins, which is
// also how ansible settles the host's recap status.
func applyHostLine(run *common.Run, p, t int, m []string) hostRef {
	word, host := m[1], m[2]
	tail := ""
	if len(m) > 3 {
		tail = m[3]
	}

	status := normalizeStatus(word)
	if strings.Contains(tail, "UNREACHABLE!") {
		status = common.StatusUnreachable
	}
	if strings.Contains(tail, "...ignoring") {
		status = common.StatusIgnored
	}
	detail := ""
	if _, after, ok := strings.Cut(tail, "=>"); ok {
		detail = strings.TrimSpace(after)
	}

	hosts := run.Plays[p].Tasks[t].Hosts
	for i := range hosts {
		if hosts[i].Host == host {
			hosts[i].Status = status
			if detail != "" {
				hosts[i].Detail = detail
			}
			return hostRef{p, t, i}
		}
	}
	run.Plays[p].Tasks[t].Hosts = append(hosts, common.HostResult{Host: host, Status: status, Detail: detail})
	return hostRef{p, t, len(run.Plays[p].Tasks[t].Hosts) - 1}
}

// parseRecapRow parses "host : ok=3 changed=1 ..." counter rows.
func parseRecapRow(line string, recap *map[string]map[string]int) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	host := strings.TrimSuffix(fields[0], ":")
	if host == "" {
		return
	}
	row := map[string]int{}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		row[k] = n
	}
	if len(row) == 0 {
		return
	}
	if *recap == nil {
		*recap = map[string]map[string]int{}
	}
	(*recap)[host] = row
}

// services/ingest_json.go
package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"playmap/common"
)

// NormalizeJSON maps ansible's JSON callback output (and close cousins
// of it) onto the canonical run tree. Field lookups are tolerant: every
// known spelling of a key is tried, nothing unknown is fatal, and a
// document with zero plays yields an empty run rather than an error.
func NormalizeJSON(data []byte) (*common.Run, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ingest: decode json: %w", err)
	}

	run := &common.Run{Plays: []common.Play{}}

	root, _ := asMap(doc)
	var playsRaw []any
	if root != nil {
		playsRaw, _ = asSlice(root["plays"])
	} else if arr, ok := asSlice(doc); ok {
		// Some wrappers emit the plays array bare, without the stats envelope.
		playsRaw = arr
	}

	for i, pv := range playsRaw {
		run.Plays = append(run.Plays, normalizePlay(i, pv))
	}
	if root != nil {
		run.Recap = normalizeRecap(root)
	}
	return run, nil
}

func normalizePlay(i int, v any) common.Play {
	fallback := fmt.Sprintf("Play %d", i+1)
	m, ok := asMap(v)
	if !ok {
		return common.Play{Name: fallback, Tasks: []common.Task{}}
	}

	name := ""
	if meta, ok := asMap(m["play"]); ok {
		name, _ = asString(meta["name"])
	}
	if name == "" {
		name, _ = asString(m["name"])
	}
	name = CleanLabel(name)
	if name == "" {
		name = fallback
	}

	play := common.Play{Name: name, Tasks: []common.Task{}}
	for _, key := range []string{"tasks", "tasks_results", "tasks_list"} {
		if raw, ok := asSlice(m[key]); ok {
			for j, tv := range raw {
				play.Tasks = append(play.Tasks, normalizeTask(j, tv))
			}
			break
		}
	}
	return play
}

func normalizeTask(j int, v any) common.Task {
	fallback := fmt.Sprintf("Task %d", j+1)
	m, ok := asMap(v)
	if !ok {
		return common.Task{Name: fallback, Hosts: []common.HostResult{}}
	}

	name, _ := asString(m["name"])
	var meta map[string]any
	if meta, ok = asMap(m["task"]); ok && name == "" {
		name, _ = asString(meta["name"])
	}
	if name == "" {
		name, _ = asString(m["action"])
	}
	name = CleanLabel(name)
	if name == "" {
		name = fallback
	}

	task := common.Task{Name: name, Hosts: []common.HostResult{}}
	if d := taskDuration(m); d != nil {
		task.DurationSeconds = d
	} else if meta != nil {
		task.DurationSeconds = taskDuration(meta)
	}

	if hosts, ok := asMap(m["hosts"]); ok {
		names := make([]string, 0, len(hosts))
		for h := range hosts {
			names = append(names, h)
		}
		// JSON objects carry no order; sort so the same input always
		// yields the same node sequence.
		sort.Strings(names)
		for _, h := range names {
			task.Hosts = append(task.Hosts, normalizeHostResult(h, hosts[h]))
		}
	}
	return task
}

// taskDuration digs a duration in seconds out of the shapes seen in the
// wild: a bare number under duration or duration_seconds, or a duration
// object with elapsed, numeric start/end, or RFC3339 start/end.
func taskDuration(m map[string]any) *float64 {
	if n, ok := asNumber(m["duration"]); ok {
		return nonNegative(n)
	}
	if n, ok := asNumber(m["duration_seconds"]); ok {
		return nonNegative(n)
	}
	d, ok := asMap(m["duration"])
	if !ok {
		return nil
	}
	if n, ok := asNumber(d["elapsed"]); ok {
		return nonNegative(n)
	}
	if start, ok := asNumber(d["start"]); ok {
		if end, ok := asNumber(d["end"]); ok {
			return nonNegative(end - start)
		}
	}
	if start, ok := asTime(d["start"]); ok {
		if end, ok := asTime(d["end"]); ok {
			return nonNegative(end.Sub(start).Seconds())
		}
	}
	return nil
}

func nonNegative(n float64) *float64 {
	if n < 0 {
		return nil
	}
	return &n
}

// normalizeHostResult derives a host's status from the callback flags.
// Precedence mirrors how ansible itself tallies the recap: unreachable
// beats failed, an ignored failure is its own thing, skipped and
// rescued beat changed.
func normalizeHostResult(host string, v any) common.HostResult {
	hr := common.HostResult{Host: host, Status: common.StatusOK}
	m, ok := asMap(v)
	if !ok {
		if s, ok := asString(v); ok {
			hr.Status = normalizeStatus(s)
		}
		return hr
	}

	switch {
	case asBool(m["unreachable"]):
		hr.Status = common.StatusUnreachable
	case asBool(m["failed"]) && asBool(m["ignore_errors"]):
		hr.Status = common.StatusIgnored
	case asBool(m["failed"]):
		hr.Status = common.StatusFailed
	case asBool(m["skipped"]), hasString(m["skip_reason"]):
		hr.Status = common.StatusSkipped
	case asBool(m["rescued"]):
		hr.Status = common.StatusRescued
	case asBool(m["changed"]):
		hr.Status = common.StatusChanged
	default:
		if s, ok := asString(m["status"]); ok {
			hr.Status = normalizeStatus(s)
		} else if s, ok := asString(m["state"]); ok {
			hr.Status = normalizeStatus(s)
		}
	}

	if detail := stringify(m["msg"]); detail != "" {
		hr.Detail = detail
	} else if detail := stringify(m["stderr"]); detail != "" {
		hr.Detail = detail
	}
	return hr
}

func normalizeRecap(root map[string]any) map[string]map[string]int {
	var src map[string]any
	for _, key := range []string{"stats", "playbook_recap"} {
		if m, ok := asMap(root[key]); ok {
			src = m
			break
		}
	}
	if len(src) == 0 {
		return nil
	}
	recap := make(map[string]map[string]int, len(src))
	for host, v := range src {
		counters, ok := asMap(v)
		if !ok {
			continue
		}
		row := make(map[string]int, len(counters))
		for k, cv := range counters {
			if n, ok := asNumber(cv); ok {
				row[k] = int(n)
			} else if s, ok := asString(cv); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
					row[k] = n
				}
			}
		}
		if len(row) > 0 {
			recap[host] = row
		}
	}
	if len(recap) == 0 {
		return nil
	}
	return recap
}

// Loose-shape accessors for walking decoded JSON.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func hasString(v any) bool {
	_, ok := asString(v)
	return ok
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stringify renders a callback msg value for the detail field: strings
// pass through, anything structured becomes compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

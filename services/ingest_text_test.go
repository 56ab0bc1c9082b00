package services

import (
	"strings"
	"testing"

	"playmap/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consoleFixture = `
PLAY [Configure webservers] *********************************************

TASK [Gathering Facts] ***************************************************
ok: [web01]
ok: [web02]

TASK [Install nginx] ********************************************* (12.345s)
changed: [web01]
fatal: [web02]: FAILED! => {"msg": "No package nginx available"}
...ignoring

TASK [Restart nginx] ******************************************************
skipping: [web01]
fatal: [web02]: UNREACHABLE! => {"changed": false, "msg": "timed out"}

RUNNING HANDLER [reload systemd] ******************************************
ok: [web01]

PLAY RECAP ****************************************************************
web01                      : ok=3    changed=1    unreachable=0    failed=0    skipped=1    rescued=0    ignored=0
web02                      : ok=0    changed=0    unreachable=1    failed=0    skipped=0    rescued=0    ignored=1
`

func TestNormalizeTextConsoleOutput(t *testing.T) {
	run := NormalizeText([]byte(consoleFixture), DefaultPatterns())
	require.Len(t, run.Plays, 1)

	play := run.Plays[0]
	assert.Equal(t, "Configure webservers", play.Name)
	require.Len(t, play.Tasks, 4)

	facts := play.Tasks[0]
	assert.Equal(t, "Gathering Facts", facts.Name)
	assert.Nil(t, facts.DurationSeconds)
	require.Len(t, facts.Hosts, 2)
	assert.Equal(t, common.StatusOK, facts.Hosts[0].Status)
	assert.Equal(t, common.StatusOK, facts.Hosts[1].Status)

	install := play.Tasks[1]
	assert.Equal(t, "Install nginx", install.Name)
	require.NotNil(t, install.DurationSeconds)
	assert.InDelta(t, 12.345, *install.DurationSeconds, 1e-9)
	require.Len(t, install.Hosts, 2)
	assert.Equal(t, common.StatusChanged, install.Hosts[0].Status)
	// fatal line followed by ...ignoring downgrades to ignored
	assert.Equal(t, common.StatusIgnored, install.Hosts[1].Status)
	assert.Equal(t, `{"msg": "No package nginx available"}`, install.Hosts[1].Detail)

	restart := play.Tasks[2]
	assert.Equal(t, common.StatusSkipped, restart.Hosts[0].Status)
	assert.Equal(t, common.StatusUnreachable, restart.Hosts[1].Status)
	assert.Equal(t, `{"changed": false, "msg": "timed out"}`, restart.Hosts[1].Detail)

	handler := play.Tasks[3]
	assert.Equal(t, "reload systemd", handler.Name)
	require.Len(t, handler.Hosts, 1)

	require.Contains(t, run.Recap, "web01")
	assert.Equal(t, 3, run.Recap["web01"]["ok"])
	assert.Equal(t, 1, run.Recap["web01"]["changed"])
	assert.Equal(t, 1, run.Recap["web02"]["unreachable"])
	assert.Equal(t, 1, run.Recap["web02"]["ignored"])
}

func TestNormalizeTextOrphanLinesDropped(t *testing.T) {
	input := strings.Join([]string{
		"TASK [orphan task] ***",
		"ok: [ghost]",
		"PLAY [Real play] ***",
		"ok: [early-host]",
		"TASK [First task] ***",
		"ok: [web01]",
	}, "\n")

	run := NormalizeText([]byte(input), DefaultPatterns())
	require.Len(t, run.Plays, 1)
	require.Len(t, run.Plays[0].Tasks, 1)
	assert.Equal(t, "First task", run.Plays[0].Tasks[0].Name)
	require.Len(t, run.Plays[0].Tasks[0].Hosts, 1)
	assert.Equal(t, "web01", run.Plays[0].Tasks[0].Hosts[0].Host)
}

func TestNormalizeTextRepeatedHostLastWins(t *testing.T) {
	input := strings.Join([]string{
		"PLAY [P] ***",
		"TASK [Loop] ***",
		`failed: [web01] (item=a) => {"msg": "a failed"}`,
		"ok: [web01] => (item=b)",
	}, "\n")

	run := NormalizeText([]byte(input), DefaultPatterns())
	hosts := run.Plays[0].Tasks[0].Hosts
	require.Len(t, hosts, 1)
	assert.Equal(t, common.StatusOK, hosts[0].Status)
	assert.Equal(t, "(item=b)", hosts[0].Detail)
}

func TestNormalizeTextUnrecognized(t *testing.T) {
	t.Run("no recognizable lines", func(t *testing.T) {
		run := NormalizeText([]byte("just some\nrandom noise\n"), DefaultPatterns())
		assert.Empty(t, run.Plays)
		assert.Nil(t, run.Recap)
	})
	t.Run("unnamed play falls back", func(t *testing.T) {
		run := NormalizeText([]byte("PLAY [***] ***\n"), DefaultPatterns())
		require.Len(t, run.Plays, 1)
		assert.Equal(t, "Play 1", run.Plays[0].Name)
	})
}

func TestNormalizeTextRecapStopsHostMatching(t *testing.T) {
	input := strings.Join([]string{
		"PLAY [P] ***",
		"TASK [T] ***",
		"ok: [web01]",
		"PLAY RECAP ***",
		"web01 : ok=1 changed=0",
		"not a recap row at all",
	}, "\n")

	run := NormalizeText([]byte(input), DefaultPatterns())
	require.Len(t, run.Plays[0].Tasks[0].Hosts, 1)
	assert.Equal(t, map[string]int{"ok": 1, "changed": 0}, run.Recap["web01"])
	// junk after the recap neither crashes nor grows the tree
	assert.Len(t, run.Plays, 1)
}

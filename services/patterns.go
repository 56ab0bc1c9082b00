// services/patterns.go
package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"playmap/common"

	"github.com/goccy/go-yaml"
)

const (
	PatternsFileEnv  = "PLAYMAP_PATTERNS_FILE"
	PatternsWatchEnv = "PLAYMAP_PATTERNS_WATCH"
)

// Built-in grammar for the default ansible-playbook callback output.
// Real-world output varies by verbosity and callback plugin, so every
// pattern can be overridden from a YAML file (see LoadPatternsFile).
const (
	defaultPlayPattern     = `^PLAY \[(.+?)\]`
	defaultTaskPattern     = `^TASK \[(.+?)\]`
	defaultHandlerPattern  = `^RUNNING HANDLER \[(.+?)\]`
	defaultHostPattern     = `^(ok|changed|failed|fatal|skipping|skipped|unreachable|rescued|ignored):\s*\[([^\]]+)\](.*)$`
	defaultDurationPattern = `\((\d+(?:\.\d+)?)s\)`
	defaultRecapPattern    = `^PLAY RECAP`
)

// PatternSet is the compiled line grammar the text normalizer runs with.
// Capture contract: Play/Task/Handler capture the name, Host captures
// (status word, host, trailing detail), Duration captures the seconds
// figure on a task boundary line.
type PatternSet struct {
	Play     *regexp.Regexp
	Task     *regexp.Regexp
	Handler  *regexp.Regexp
	Host     *regexp.Regexp
	Duration *regexp.Regexp
	Recap    *regexp.Regexp

	Source string // "builtin" or the file it was loaded from
}

// Describe returns the grammar as pattern strings, for the /api/patterns
// endpoint and for logs.
func (ps *PatternSet) Describe() map[string]string {
	return map[string]string{
		"play":        ps.Play.String(),
		"task":        ps.Task.String(),
		"handler":     ps.Handler.String(),
		"host_result": ps.Host.String(),
		"duration":    ps.Duration.String(),
		"recap":       ps.Recap.String(),
	}
}

// patternsFile is the YAML override shape. Empty fields fall back to the
// built-in pattern so a file may override just one line kind.
type patternsFile struct {
	Play       string `yaml:"play"`
	Task       string `yaml:"task"`
	Handler    string `yaml:"handler"`
	HostResult string `yaml:"host_result"`
	Duration   string `yaml:"duration"`
	Recap      string `yaml:"recap"`
}

var (
	patMu    sync.RWMutex
	patPath  string
	patterns *PatternSet
)

// InitPatterns compiles the startup grammar: the file named by
// PLAYMAP_PATTERNS_FILE when set, built-ins otherwise.
func InitPatterns() error {
	p := strings.TrimSpace(common.Env(PatternsFileEnv, ""))
	if p == "" {
		patPath = ""
		setPatterns(DefaultPatterns())
		common.InfoLog("patterns: using built-in grammar")
		return nil
	}
	ps, err := LoadPatternsFile(p)
	if err != nil {
		return err
	}
	patPath = p
	setPatterns(ps)
	common.InfoLog("patterns: loaded grammar from %s", p)
	return nil
}

// ReloadPatterns re-reads the pattern file. On any error the last good
// set stays active.
func ReloadPatterns() error {
	if patPath == "" {
		return fmt.Errorf("patterns: no pattern file configured")
	}
	ps, err := LoadPatternsFile(patPath)
	if err != nil {
		return err
	}
	setPatterns(ps)
	common.InfoLog("patterns: reloaded grammar from %s", patPath)
	return nil
}

// CurrentPatterns returns the active grammar. Never nil: callers get the
// built-ins if InitPatterns was skipped (tests do this).
func CurrentPatterns() *PatternSet {
	patMu.RLock()
	ps := patterns
	patMu.RUnlock()
	if ps == nil {
		return DefaultPatterns()
	}
	return ps
}

func setPatterns(ps *PatternSet) {
	patMu.Lock()
	patterns = ps
	patMu.Unlock()
}

// DefaultPatterns compiles the built-in grammar.
func DefaultPatterns() *PatternSet {
	ps, err := compilePatterns(patternsFile{})
	if err != nil {
		// Built-ins are compile-checked by tests; this cannot happen at runtime.
		panic(err)
	}
	ps.Source = "builtin"
	return ps
}

// LoadPatternsFile reads a YAML grammar override and compiles it.
func LoadPatternsFile(path string) (*PatternSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patterns: read %s: %w", path, err)
	}
	var f patternsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("patterns: parse %s: %w", path, err)
	}
	ps, err := compilePatterns(f)
	if err != nil {
		return nil, fmt.Errorf("patterns: %s: %w", path, err)
	}
	ps.Source = path
	return ps, nil
}

func compilePatterns(f patternsFile) (*PatternSet, error) {
	compile := func(kind, pat, def string, minGroups int) (*regexp.Regexp, error) {
		if strings.TrimSpace(pat) == "" {
			pat = def
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", kind, err)
		}
		if re.NumSubexp() < minGroups {
			return nil, fmt.Errorf("%s pattern needs at least %d capture group(s), has %d", kind, minGroups, re.NumSubexp())
		}
		return re, nil
	}

	var (
		ps  PatternSet
		err error
	)
	if ps.Play, err = compile("play", f.Play, defaultPlayPattern, 1); err != nil {
		return nil, err
	}
	if ps.Task, err = compile("task", f.Task, defaultTaskPattern, 1); err != nil {
		return nil, err
	}
	if ps.Handler, err = compile("handler", f.Handler, defaultHandlerPattern, 1); err != nil {
		return nil, err
	}
	if ps.Host, err = compile("host_result", f.HostResult, defaultHostPattern, 2); err != nil {
		return nil, err
	}
	if ps.Duration, err = compile("duration", f.Duration, defaultDurationPattern, 1); err != nil {
		return nil, err
	}
	if ps.Recap, err = compile("recap", f.Recap, defaultRecapPattern, 0); err != nil {
		return nil, err
	}
	return &ps, nil
}

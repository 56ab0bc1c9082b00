// services/ingest.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"playmap/common"
)

// Sentinel errors callers can test with errors.Is to pick a response code.
var (
	ErrUnsupportedType = errors.New("unsupported file type (want .json, .txt, or .log)")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
)

// Format is the wire shape of an uploaded run.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// DetectFormat maps a filename extension to an input format. The
// extension declares intent; content sniffing happens later and only
// ever upgrades text to JSON, never rejects.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".txt", ".log":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%q: %w", filename, ErrUnsupportedType)
	}
}

// SniffJSON reports whether data looks like a JSON document. Used for
// .txt/.log uploads that actually carry callback JSON, and for raw
// bodies with no filename at all.
func SniffJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Normalize turns one uploaded playbook run into the canonical tree and
// reports which parser produced it. JSON named but malformed degrades to
// the text grammar rather than failing; only an unusable upload (empty,
// bad extension) errors.
func Normalize(filename string, data []byte) (*common.Run, Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", ErrEmptyUpload
	}
	declared, err := DetectFormat(filename)
	if err != nil {
		return nil, "", err
	}
	run, used := normalizeAs(declared, filename, data)
	return run, used, nil
}

// NormalizeBytes handles bodies that arrive without a filename (the raw
// upload path). Format comes from sniffing alone.
func NormalizeBytes(data []byte) (*common.Run, Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", ErrEmptyUpload
	}
	run, used := normalizeAs(FormatText, "(body)", data)
	return run, used, nil
}

func normalizeAs(declared Format, name string, data []byte) (*common.Run, Format) {
	if declared == FormatJSON {
		run, err := NormalizeJSON(data)
		if err == nil {
			return run, FormatJSON
		}
		common.WarnLog("ingest: %s: json parse failed, treating as text: %v", name, err)
		return NormalizeText(data, CurrentPatterns()), FormatText
	}
	// Declared text: a .txt/.log that carries callback JSON still gets
	// the richer parse, but a sniff miss never rejects the upload.
	if SniffJSON(data) {
		if run, err := NormalizeJSON(data); err == nil {
			return run, FormatJSON
		}
	}
	return NormalizeText(data, CurrentPatterns()), FormatText
}

var (
	labelStripRe = regexp.MustCompile(`[*\[\]]`)
	labelSpaceRe = regexp.MustCompile(`\s+`)
)

// CleanLabel strips ansible banner noise (asterisk padding, brackets)
// and collapses runs of whitespace so names render cleanly as labels.
func CleanLabel(s string) string {
	s = labelStripRe.ReplaceAllString(s, "")
	s = labelSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeStatus folds the status words seen in text output and JSON
// result objects onto the canonical set. Alias verbs ("fatal",
// "skipping") map first; unknown words count as ok so a new callback
// verb never drops a host from the tree.
func normalizeStatus(word string) common.Status {
	w := strings.ToLower(strings.TrimSpace(word))
	switch w {
	case "fatal", "failures":
		return common.StatusFailed
	case "skipping":
		return common.StatusSkipped
	}
	if s := common.Status(w); common.KnownStatus(s) {
		return s
	}
	return common.StatusOK
}

// report.go - upload ingestion and report building routes
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"playmap/common"
	"playmap/middleware"
	"playmap/services"
	"playmap/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxUploadEnv          = "PLAYMAP_MAX_UPLOAD_BYTES"
	topTasksEnv           = "PLAYMAP_TOP_TASKS"
	defaultMaxUploadBytes = 16 << 20
)

// Helper functions
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false) // Don't escape characters like & in task names
	encoder.Encode(data)
}

// Report is the full payload built from one normalized upload.
type Report struct {
	ReportID       string                    `json:"report_id"`
	InputDigest    string                    `json:"input_digest"`
	Format         string                    `json:"format"`
	Plays          int                       `json:"plays"`
	Tasks          int                       `json:"tasks"`
	Hosts          int                       `json:"hosts"`
	Nodes          []common.Node             `json:"nodes"`
	Edges          []common.Edge             `json:"edges"`
	NestedJSON     []*common.NestedNode      `json:"nested_json"`
	Markdown       string                    `json:"markdown"`
	TopTasks       []common.RankedTask       `json:"top_tasks"`
	Recap          map[string]map[string]int `json:"recap,omitempty"`
	StatusMeanings map[common.Status]string  `json:"status_meanings"`
}

// SetupReportRoutes configures the upload and analysis endpoints
func SetupReportRoutes(router chi.Router) {
	// Full report: graph, nested tree, markdown, ranking, recap, legend
	router.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
		filename, data, ok := readUpload(w, r)
		if !ok {
			return
		}
		run, format, err := normalizeUpload(filename, data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		report := buildReport(run, format, data, topN(r))
		common.InfoLog("ingest: %s (%s): %d plays / %d tasks / %d hosts, report=%s req=%s",
			uploadName(filename), format, report.Plays, report.Tasks, report.Hosts,
			report.ReportID, middleware.GetRequestID(r.Context()))
		writeJSON(w, http.StatusOK, report)
	})

	// Ranking only, same upload contract
	router.Post("/top-tasks", func(w http.ResponseWriter, r *http.Request) {
		filename, data, ok := readUpload(w, r)
		if !ok {
			return
		}
		run, _, err := normalizeUpload(filename, data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"report_id": uuid.New().String(),
			"top_tasks": services.TopTasks(run, topN(r)),
		})
	})
}

func normalizeUpload(filename string, data []byte) (*common.Run, services.Format, error) {
	if filename == "" {
		return services.NormalizeBytes(data)
	}
	return services.Normalize(filename, data)
}

func buildReport(run *common.Run, format services.Format, data []byte, n int) Report {
	nodes, edges := services.BuildGraph(run)
	plays, tasks, hosts := services.Counts(run)
	return Report{
		ReportID:       uuid.New().String(),
		InputDigest:    utils.Sha256Hex(data),
		Format:         string(format),
		Plays:          plays,
		Tasks:          tasks,
		Hosts:          hosts,
		Nodes:          nodes,
		Edges:          edges,
		NestedJSON:     services.BuildNested(run),
		Markdown:       services.BuildMarkdown(run),
		TopTasks:       services.TopTasks(run, n),
		Recap:          services.DeriveRecap(run),
		StatusMeanings: common.StatusMeanings,
	}
}

// readUpload pulls the log bytes out of the request: the "file" part of
// a multipart form when one is sent, the raw body otherwise. On failure
// it writes the error response itself and reports ok=false.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := int64(parseIntDefault(common.Env(maxUploadEnv, ""), defaultMaxUploadBytes))
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			if tooLarge(w, err, limit) {
				return "", nil, false
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "no file uploaded"})
			return "", nil, false
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			if tooLarge(w, err, limit) {
				return "", nil, false
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file", "message": err.Error()})
			return "", nil, false
		}
		return header.Filename, data, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if tooLarge(w, err, limit) {
			return "", nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file", "message": err.Error()})
		return "", nil, false
	}
	return "", data, true
}

func tooLarge(w http.ResponseWriter, err error, limit int64) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}
	writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
		"error":   "upload too large",
		"message": fmt.Sprintf("limit is %d bytes", limit),
	})
	return true
}

// topN resolves the ranking cap: ?top= query override, then env, then
// the built-in default, clamped to something sane.
func topN(r *http.Request) int {
	def := parseIntDefault(common.Env(topTasksEnv, ""), services.DefaultTopTasks)
	return clamp(parseIntDefault(r.URL.Query().Get("top"), def), 1, 100)
}

func uploadName(filename string) string {
	if filename == "" {
		return "(raw body)"
	}
	return filename
}

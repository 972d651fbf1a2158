package tool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
)

// DefaultTailLines bounds the `tail_logs` tool's default window.
const DefaultTailLines = 200

// LogTool is the second capability bundle named in §9: log-format
// parsing itself is out of scope (§1), so this tool operates on raw
// lines, leaving interpretation to the operator or downstream tooling.
type LogTool struct {
	name     string
	logPaths []string
}

// NewSearchLogsTool constructs the `search_logs` tool over the agent's
// configured log_paths (§6).
func NewSearchLogsTool(logPaths []string) *LogTool {
	return &LogTool{name: "search_logs", logPaths: logPaths}
}

// NewTailLogsTool constructs the `tail_logs` tool.
func NewTailLogsTool(logPaths []string) *LogTool {
	return &LogTool{name: "tail_logs", logPaths: logPaths}
}

func (t *LogTool) Name() string { return t.name }

func (t *LogTool) Description() string {
	if t.name == "tail_logs" {
		return "Return the most recent lines from the agent's configured log files."
	}
	return "Search the agent's configured log files for a substring and return matching entries."
}

func (t *LogTool) Schema() map[string]interface{} {
	if t.name == "tail_logs" {
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"lines": map[string]interface{}{"type": "integer"},
			},
		}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
		},
		"required": []string{"query"},
	}
}

// Execute scans every configured log path; bounded by input size (§5),
// since it streams line-by-line rather than loading files wholesale.
func (t *LogTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	if t.name == "tail_logs" {
		return t.tail(args)
	}
	return t.search(args)
}

func (t *LogTool) search(args map[string]interface{}) (*domaintool.Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return &domaintool.Result{ToolName: t.name, Success: false, Error: "missing required argument: query"}, nil
	}

	var entries []string
	for _, path := range t.logPaths {
		lines, err := scanFile(path, func(line string) bool {
			return strings.Contains(line, query)
		})
		if err != nil {
			continue
		}
		entries = append(entries, lines...)
	}

	return &domaintool.Result{
		ToolName: t.name,
		Success:  true,
		Data:     map[string]interface{}{"entries": toAnySlice(entries)},
		Summary:  fmt.Sprintf("%d matching log entries", len(entries)),
	}, nil
}

func (t *LogTool) tail(args map[string]interface{}) (*domaintool.Result, error) {
	n := DefaultTailLines
	if v, ok := args["lines"].(float64); ok && v > 0 {
		n = int(v)
	}

	var entries []string
	for _, path := range t.logPaths {
		lines, err := scanFile(path, nil)
		if err != nil {
			continue
		}
		entries = append(entries, lines...)
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	return &domaintool.Result{
		ToolName: t.name,
		Success:  true,
		Data:     map[string]interface{}{"entries": toAnySlice(entries)},
		Summary:  fmt.Sprintf("last %d log lines", len(entries)),
	}, nil
}

func scanFile(path string, match func(string) bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if match == nil || match(line) {
			out = append(out, line)
		}
	}
	return out, nil
}

func toAnySlice(lines []string) []interface{} {
	out := make([]interface{}, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}

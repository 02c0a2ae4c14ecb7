package executor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// idQuery extracts the conventional "id" field oddjobs expects from every
// queue item a runbook's list/take command prints (spec.md §6 queue
// contract): one JSON object per line. gojq does the extraction so a
// runbook author can point a worker at any JSON shape without oddjobs
// hardcoding a schema.
var idQuery = mustParseQuery(".id // .Id // .ID")

func mustParseQuery(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("executor: invalid built-in jq query %q: %v", src, err))
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(fmt.Sprintf("executor: invalid built-in jq query %q: %v", src, err))
	}
	return code
}

// parseQueueItems reads one JSON object per line from a queue's `list`
// command and flattens each to map[string]string (queue item Data is always
// string-valued per spec.md §3, so non-string fields are JSON re-encoded).
func parseQueueItems(out []byte) ([]map[string]string, error) {
	var items []map[string]string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		item, err := flattenJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("executor: parse queue item: %w", err)
		}
		if _, ok := item["id"]; !ok {
			if id, ok := extractID(line); ok {
				item["id"] = id
			}
		}
		items = append(items, item)
	}
	return items, scanner.Err()
}

// parseQueueItem reads a single JSON object, for a take command's output.
func parseQueueItem(out []byte) (map[string]string, error) {
	line := bytes.TrimSpace(out)
	if len(line) == 0 {
		return map[string]string{}, nil
	}
	return flattenJSONLine(line)
}

func flattenJSONLine(line []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}
	flat := make(map[string]string, len(raw))
	for k, v := range raw {
		switch vv := v.(type) {
		case string:
			flat[k] = vv
		default:
			b, _ := json.Marshal(vv)
			flat[k] = string(b)
		}
	}
	return flat, nil
}

func extractID(line []byte) (string, bool) {
	var raw any
	if err := json.Unmarshal(line, &raw); err != nil {
		return "", false
	}
	iter := idQuery.Run(raw)
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if err, isErr := v.(error); isErr {
		_ = err
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case nil:
		return "", false
	default:
		b, _ := json.Marshal(s)
		return string(b), true
	}
}

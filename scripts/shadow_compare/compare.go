package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"
)

// target is one request replayed against both backends.
//
// Ignore lists record fields that legitimately differ, such as signed download links. Unwrap
// strips a {"data": ...} envelope so the Go e-book list compares with a bare legacy array.
type target struct {
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Critical bool     `json:"critical"`
	Ignore   []string `json:"ignore"`
	Unwrap   bool     `json:"unwrap"`
	SortBy   string   `json:"sortBy"`
}

func (t target) method() string {
	m := strings.ToUpper(strings.TrimSpace(t.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (c comparison) differs() bool {
	return c.Error != nil || !c.StatusMatch || !c.BodyMatch
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetsFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goBase, legacyBase string, tgt target) comparison {
	comp := comparison{Target: tgt}

	goStatus, goBody, goDur, err := fetch(client, goBase, tgt)
	comp.DurationGo = goDur
	if err != nil {
		comp.Error = fmt.Errorf("go request failed: %w", err)
		return comp
	}
	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacyBase, tgt)
	comp.DurationLegacy = legacyDur
	if err != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	comp.BodyMatch = bodiesEqual(goBody, legacyBody, tgt)
	return comp
}

func fetch(client *http.Client, base string, tgt target) (int, []byte, time.Duration, error) {
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(tgt.method(), strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, time.Since(start), nil
}

func bodiesEqual(a, b []byte, tgt target) bool {
	if strings.TrimSpace(string(a)) == strings.TrimSpace(string(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	if tgt.Unwrap {
		aj, bj = unwrap(aj), unwrap(bj)
	}

	ignore := make(map[string]struct{}, len(tgt.Ignore))
	for _, field := range tgt.Ignore {
		ignore[field] = struct{}{}
	}
	aj = normalize(aj, ignore)
	bj = normalize(bj, ignore)
	if tgt.SortBy != "" {
		sortRecords(aj, tgt.SortBy)
		sortRecords(bj, tgt.SortBy)
	}
	return reflect.DeepEqual(aj, bj)
}

func unwrap(v interface{}) interface{} {
	if obj, ok := v.(map[string]interface{}); ok {
		if data, ok := obj["data"]; ok && len(obj) == 1 {
			return data
		}
	}
	return v
}

// normalize drops ignored keys and folds whole floats to integers at every depth.
func normalize(v interface{}, ignore map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if _, skip := ignore[k]; skip {
				delete(val, k)
				continue
			}
			val[k] = normalize(child, ignore)
		}
		return val
	case []interface{}:
		for i, child := range val {
			val[i] = normalize(child, ignore)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

func sortRecords(v interface{}, key string) {
	rows, ok := v.([]interface{})
	if !ok {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return fmt.Sprint(field(rows[i], key)) < fmt.Sprint(field(rows[j], key))
	})
}

func field(v interface{}, key string) interface{} {
	if obj, ok := v.(map[string]interface{}); ok {
		return obj[key]
	}
	return nil
}

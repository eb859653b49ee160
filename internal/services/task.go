package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// ScanKind identifies one of the scan jobs the library server can start.
type ScanKind string

const (
	ScanFull   ScanKind = "full"
	ScanQuick  ScanKind = "quick"
	ScanCovers ScanKind = "covers"
)

var scanPaths = map[ScanKind]string{
	ScanFull:   "/start-scan/",
	ScanQuick:  "/start-quick-scan/",
	ScanCovers: "/start-cover-scan/",
}

var scanTitles = map[ScanKind]string{
	ScanFull:   "Escaneo completo de la biblioteca",
	ScanQuick:  "Escaneo rápido de la biblioteca",
	ScanCovers: "Búsqueda de portadas",
}

// ScanKinds lists the supported kinds in display order.
func ScanKinds() []ScanKind { return []ScanKind{ScanFull, ScanQuick, ScanCovers} }

// ParseScanKind validates a scan kind name.
func ParseScanKind(s string) (ScanKind, error) {
	k := ScanKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := scanPaths[k]; !ok {
		return "", fmt.Errorf("%w: unknown scan kind %q (use full, quick or covers)", shared.ErrInvalidArgument, s)
	}
	return k, nil
}

// Path returns the submission endpoint of the kind.
func (k ScanKind) Path() string { return scanPaths[k] }

// Title returns the default human-readable title for the kind.
func (k ScanKind) Title() string { return scanTitles[k] }

// TaskService submits scan jobs and fetches their status.
type TaskService struct {
	api *APIService
}

func NewTaskService(api *APIService) *TaskService {
	return &TaskService{api: api}
}

// StatusPath returns the status endpoint for taskID.
func StatusPath(taskID string) string {
	return "/task-status/" + url.PathEscape(taskID) + "/"
}

// StartScan submits a scan job and returns the task id assigned by the server.
func (s *TaskService) StartScan(ctx context.Context, kind ScanKind) (string, error) {
	path, ok := scanPaths[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown scan kind %q", shared.ErrInvalidArgument, kind)
	}

	resp, err := s.api.Post(ctx, path, []byte("{}"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	var body struct {
		TaskID string `json:"task_id"`
		Error  string `json:"error"`
	}
	if !resp.IsJSON {
		return "", fmt.Errorf("%w: start scan returned status %d with a non-JSON body", shared.ErrUnexpectedResponse, resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	if !resp.OK() {
		msg := body.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: start scan returned status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
	if body.TaskID == "" {
		return "", fmt.Errorf("%w: response has no task_id", shared.ErrUnexpectedResponse)
	}
	return body.TaskID, nil
}

// FetchStatus performs one status request for taskID.
//
// Transport failures, non-2xx responses and malformed bodies are all returned as errors.
func (s *TaskService) FetchStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	resp, err := s.api.Get(ctx, StatusPath(taskID))
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.TaskStatus{}, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, taskID)
	case !resp.OK():
		return models.TaskStatus{}, fmt.Errorf("%w: status request returned %d", shared.ErrAPIRequest, resp.StatusCode)
	case !resp.IsJSON:
		return models.TaskStatus{}, fmt.Errorf("%w: status response is not JSON", shared.ErrUnexpectedResponse)
	}

	return ParseStatus(resp.Body)
}

type statusPayload struct {
	TaskID string          `json:"task_id"`
	Status string          `json:"status"`
	Info   json.RawMessage `json:"info"`
}

// ParseStatus maps a status endpoint body to a [models.TaskStatus].
func ParseStatus(data []byte) (models.TaskStatus, error) {
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.TaskStatus{}, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	if p.Status == "" {
		return models.TaskStatus{}, fmt.Errorf("%w: status field is missing", shared.ErrUnexpectedResponse)
	}

	info := decodeInfo(p.Info)

	switch p.Status {
	case "PENDING":
		return models.Pending(), nil
	case "STARTED", "PROGRESS":
		s := models.Running(stepInfo(info))
		s.Raw = p.Status
		return s, nil
	case "SUCCESS":
		switch v := info.(type) {
		case string:
			return models.Succeeded(v, nil), nil
		case map[string]any:
			return models.Succeeded("", v), nil
		case nil:
			return models.Succeeded("", nil), nil
		default:
			return models.Succeeded(fmt.Sprint(v), nil), nil
		}
	case "FAILURE":
		return models.Failed(failureMessage(info)), nil
	default:
		return models.Unknown(p.Status), nil
	}
}

func decodeInfo(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func stepInfo(info any) models.StepInfo {
	m, ok := info.(map[string]any)
	if !ok {
		return models.StepInfo{}
	}

	var s models.StepInfo
	if step, ok := m["step"].(string); ok {
		s.Step = models.Step(step)
	}
	s.Current = toInt(m["current"])
	s.Total = toInt(m["total"])
	if s.Total != nil && *s.Total == 0 {
		s.Total = nil
	}
	return s
}

// toInt reads a progress counter. Anything that is not a whole number in [0, MaxInt32] yields nil.
func toInt(v any) *int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		f = float64(i)
	default:
		return nil
	}

	if f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return nil
	}
	i := int(f)
	return &i
}

func failureMessage(info any) string {
	switch v := info.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"exc_message", "message"} {
			if msg := messageValue(v[key]); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// messageValue accepts a plain string or the list form exception arguments are serialised as.
func messageValue(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

package ords

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
)

// Client talks to the legacy Oracle REST Data Services backend. The
// legacy endpoints are inconsistent about field casing (CLASS_ID vs
// class_id) and numeric encoding (numbers vs numeric strings), so all
// normalization into canonical structs happens here and nowhere else.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs an ORDS client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Summary fetches the attendance present-day summary for a scope.
// Rows missing a class id keep ClassID nil; the caller decides how to
// filter those against the roster.
func (c *Client) Summary(ctx context.Context, scope models.Scope) ([]models.AttendanceSummaryRow, error) {
	query := url.Values{}
	query.Set("p_school_id", scope.SchoolID)
	query.Set("p_class_id", scope.ClassID)
	query.Set("p_year_id", scope.YearID)
	query.Set("p_term_id", scope.TermID)

	raw, err := c.get(ctx, "/attendance/summary", query)
	if err != nil {
		return nil, err
	}

	rows := make([]models.AttendanceSummaryRow, 0, len(raw))
	for _, item := range raw {
		studentID, ok := intField(item, "student_id")
		if !ok {
			continue
		}
		row := models.AttendanceSummaryRow{StudentID: studentID}
		if classID, ok := stringField(item, "class_id"); ok && classID != "" {
			row.ClassID = &classID
		}
		if present, ok := intField(item, "present"); ok {
			row.Present = int(present)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// get performs a GET and decodes either an ORDS collection envelope
// ({"items": [...]}) or a bare JSON array.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]map[string]interface{}, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build ords request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ords request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ords response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ords %s returned status %d", path, resp.StatusCode)
	}

	return decodeRows(body)
}

func decodeRows(body []byte) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]interface{}
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode ords array: %w", err)
		}
		return rows, nil
	}

	var envelope struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode ords envelope: %w", err)
	}
	return envelope.Items, nil
}

// field returns the value for name, matching keys case-insensitively.
func field(row map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	for key, v := range row {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

func stringField(row map[string]interface{}, name string) (string, bool) {
	v, ok := field(row, name)
	if !ok || v == nil {
		return "", false
	}
	switch value := v.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	default:
		return "", false
	}
}

func intField(row map[string]interface{}, name string) (int64, bool) {
	v, ok := field(row, name)
	if !ok || v == nil {
		return 0, false
	}
	switch value := v.(type) {
	case float64:
		return int64(value), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

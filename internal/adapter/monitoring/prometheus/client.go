package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/port"
)

type telemetryService struct {
	prometheusURL string
	client        *http.Client
	fallbackCPU   float64
	fallbackMem   float64
	log           *zap.Logger
}

// NewTelemetryService builds a host telemetry source backed by the
// Prometheus query API. When queries fail it degrades to the configured
// fallback values instead of surfacing an error, so callers never stall
// on missing telemetry.
func NewTelemetryService(promURL string, fallbackCPU, fallbackMem float64, log *zap.Logger) port.TelemetryService {
	return &telemetryService{
		prometheusURL: promURL,
		client:        &http.Client{Timeout: 5 * time.Second},
		fallbackCPU:   fallbackCPU,
		fallbackMem:   fallbackMem,
		log:           log,
	}
}

// Prometheus API response structure
type prometheusResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  interface{}       `json:"value"`
		} `json:"result"`
	} `json:"data"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
}

func (s *telemetryService) GetHostMetrics(ctx context.Context) (float64, float64, error) {
	// Query CPU Usage (percent)
	cpuQuery := `100 - (avg (rate(node_cpu_seconds_total{mode="idle"}[1m])) * 100)`

	cpuUsage, err := s.queryPrometheus(ctx, cpuQuery)
	if err != nil {
		s.log.Warn("CPU query failed, using fallback metrics", zap.Error(err))
		return s.fallbackCPU, s.fallbackMem, nil
	}

	// Query Memory Usage (bytes)
	memQuery := `node_memory_MemTotal_bytes - node_memory_MemAvailable_bytes`

	memUsage, err := s.queryPrometheus(ctx, memQuery)
	if err != nil {
		s.log.Warn("Memory query failed, using partial fallback", zap.Error(err))
		return cpuUsage, s.fallbackMem, nil // Partial fallback
	}

	return cpuUsage, memUsage / 1024 / 1024, nil // Convert bytes to MB
}

func (s *telemetryService) queryPrometheus(ctx context.Context, query string) (float64, error) {
	// URL-encode query
	escapedQuery := url.QueryEscape(query)
	reqURL := fmt.Sprintf("%s/api/v1/query?query=%s", s.prometheusURL, escapedQuery)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("prometheus returned status %d: %s", resp.StatusCode, string(body))
	}

	var result prometheusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("JSON decode failed: %w", err)
	}

	// Check for Prometheus error response
	if result.Status != "success" {
		return 0, fmt.Errorf("prometheus error: %s (%s)", result.Error, result.ErrorType)
	}

	if len(result.Data.Result) == 0 {
		return 0, fmt.Errorf("no data returned for query: %s", query)
	}

	// Parse value - handle BOTH formats
	value := result.Data.Result[0].Value

	switch v := value.(type) {
	case []interface{}:
		// Standard format: [timestamp, "value"]
		if len(v) < 2 {
			return 0, fmt.Errorf("unexpected value array length: %d", len(v))
		}

		// Value is at index 1
		switch valRaw := v[1].(type) {
		case string:
			return strconv.ParseFloat(valRaw, 64)
		case float64:
			return valRaw, nil
		default:
			return 0, fmt.Errorf("unexpected value type in array: %T", valRaw)
		}

	case float64:
		// Direct number format
		return v, nil

	case string:
		// String number
		return strconv.ParseFloat(v, 64)

	default:
		return 0, fmt.Errorf("unexpected value format: %T (%v)", value, value)
	}
}

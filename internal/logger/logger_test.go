package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	// Capture the output
	var buf bytes.Buffer
	log := New(&buf, false)

	// Log a test message
	log.Info("test message", slog.String("product_id", "prod_001"), slog.Int("number", 42))

	// Verify the output is valid JSON
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg to be 'test message', got '%v'", logEntry["msg"])
	}

	if logEntry["product_id"] != "prod_001" {
		t.Errorf("Expected product_id to be 'prod_001', got '%v'", logEntry["product_id"])
	}

	if logEntry["number"] != float64(42) {
		t.Errorf("Expected number to be 42, got '%v'", logEntry["number"])
	}

	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level to be 'INFO', got '%v'", logEntry["level"])
	}

	// Verify time field exists
	if _, ok := logEntry["time"]; !ok {
		t.Error("Expected 'time' field in JSON log output")
	}
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug message to be suppressed, got %s", buf.String())
	}

	New(&buf, true).Debug("visible")
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	if logEntry["level"] != "DEBUG" {
		t.Errorf("Expected level to be 'DEBUG', got '%v'", logEntry["level"])
	}
}

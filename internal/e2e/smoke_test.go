//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var baseURL string

func TestMain(m *testing.M) {
	baseURL = os.Getenv("PIPBOY_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server readiness (up to 30s)
	ready := false
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	if !ready {
		fmt.Fprintf(os.Stderr, "server at %s not ready after 30s\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func get(t *testing.T, path string, v interface{}) {
	t.Helper()
	resp, err := http.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("GET %s: unmarshal: %v (body: %s)", path, err, string(raw))
	}
}

func post(t *testing.T, path string, body, v interface{}) int {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			t.Fatalf("POST %s: unmarshal: %v (body: %s)", path, err, string(raw))
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	var body map[string]string
	get(t, "/api/health", &body)
	if body["status"] != "ok" {
		t.Errorf("expected ok, got %q", body["status"])
	}
}

func TestContextMonitor(t *testing.T) {
	var usage map[string]interface{}
	get(t, "/api/context/monitor", &usage)
	if usage["status"] == "" {
		t.Error("expected a usage status")
	}
	if usage["max_tokens"].(float64) <= 0 {
		t.Errorf("expected positive max_tokens, got %v", usage["max_tokens"])
	}
}

func TestToolListing(t *testing.T) {
	var tools []map[string]interface{}
	get(t, "/api/tools", &tools)
	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		fn := tl["function"].(map[string]interface{})
		names = append(names, fn["name"].(string))
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "calculate") {
		t.Errorf("expected calculate tool, got %s", joined)
	}
}

func TestTaskLifecycle(t *testing.T) {
	var created map[string]interface{}
	status := post(t, "/api/tasks", map[string]interface{}{
		"title":           "smoke test task",
		"estimated_hours": 0.1,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create task: status %d", status)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected task id")
	}

	if status := post(t, "/api/tasks/"+id+"/start", nil, nil); status != http.StatusOK {
		t.Errorf("start: status %d", status)
	}
	var done map[string]interface{}
	if status := post(t, "/api/tasks/"+id+"/complete", nil, &done); status != http.StatusOK {
		t.Errorf("complete: status %d", status)
	}
	if done["status"] != "completed" {
		t.Errorf("expected completed, got %v", done["status"])
	}
}

func TestChat(t *testing.T) {
	var reply map[string]interface{}
	status := post(t, "/api/agents/pipboy/chat", map[string]string{
		"message": "你好，请介绍一下你自己",
	}, &reply)
	if status != http.StatusOK {
		t.Fatalf("chat: status %d: %v", status, reply)
	}
	content, _ := reply["content"].(string)
	if content == "" {
		t.Error("expected non-empty reply")
	}
	t.Logf("reply: %.300s", content)
}

package ai

import (
	"context"
	"testing"
)

func TestNewLLMClientModelSetup(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	client, err := NewLLMClient(context.Background())
	if err != nil {
		t.Fatalf("NewLLMClient returned error: %v", err)
	}
	defer client.Close()

	if client.textModel == client.jsonModel {
		t.Fatal("text and JSON models must be separate instances")
	}
	if client.textModel.ResponseMIMEType != "text/plain" {
		t.Errorf("text model MIME type = %q", client.textModel.ResponseMIMEType)
	}
	if client.jsonModel.ResponseMIMEType != "application/json" {
		t.Errorf("json model MIME type = %q", client.jsonModel.ResponseMIMEType)
	}
}

func TestStripJSONFence(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `["a","b"]`, `["a","b"]`},
		{"json fence", "```json\n[\"a\"]\n```", `["a"]`},
		{"bare fence", "```\n{\"x\":1}\n```", `{"x":1}`},
		{"surrounding whitespace", "  \n[1,2]\n  ", "[1,2]"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripJSONFence(tc.input); got != tc.want {
				t.Errorf("StripJSONFence(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseKeyPoints(t *testing.T) {
	points, err := ParseKeyPoints("```json\n[\"first point\", \"second point\"]\n```")
	if err != nil {
		t.Fatalf("ParseKeyPoints returned error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 key points, got %d", len(points))
	}
	if points[0] != "first point" {
		t.Errorf("unexpected first point: %q", points[0])
	}
}

func TestParseKeyPointsInvalidJSON(t *testing.T) {
	if _, err := ParseKeyPoints("not json at all"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseTasks(t *testing.T) {
	raw := `[
		{"title":"Read chapter 4","description":"Pages 80-95","priority":"HIGH","due_date":"2026-09-05"},
		{"title":"","description":"Review notes","priority":"urgent","due_date":null}
	]`

	tasks, err := ParseTasks(raw)
	if err != nil {
		t.Fatalf("ParseTasks returned error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	if tasks[0].Priority != "high" {
		t.Errorf("expected priority normalized to high, got %q", tasks[0].Priority)
	}
	if tasks[0].DueDate == nil || *tasks[0].DueDate != "2026-09-05" {
		t.Errorf("unexpected due date: %v", tasks[0].DueDate)
	}

	if tasks[1].Priority != "medium" {
		t.Errorf("unknown priority should default to medium, got %q", tasks[1].Priority)
	}
	if tasks[1].Title != "Extracted Task" {
		t.Errorf("empty title should get a default, got %q", tasks[1].Title)
	}
	if tasks[1].DueDate != nil {
		t.Errorf("expected nil due date, got %v", *tasks[1].DueDate)
	}
}

func TestParseTasksEmptyArray(t *testing.T) {
	tasks, err := ParseTasks("[]")
	if err != nil {
		t.Fatalf("ParseTasks returned error: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}

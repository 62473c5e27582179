package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"risk_framework/internal/config"
	"risk_framework/internal/project"
)

func testOptics() config.Optics {
	return config.Optics{
		ConsolidatorRole: config.DefaultConsolidatorRole,
		Optics: []config.Optic{
			{Name: "Schedule", Criteria: config.Criteria{Green: "on track", Amber: "slipping", Red: "blocked"}},
			{Name: "Budget", Criteria: config.Criteria{Green: "within", Amber: "tight", Red: "overrun"}},
		},
	}
}

func chatResponse(content string) string {
	wrapper := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(wrapper)
	return string(raw)
}

func TestRateProjectSequence(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		prompts = append(prompts, string(body))
		call := len(prompts)
		switch {
		case call <= 2:
			optic := "Schedule"
			if call == 2 {
				optic = "Budget"
			}
			io.WriteString(w, chatResponse(`{"optic_name":"`+optic+`","rating":"Amber","justification":"j","recommendation":"r"}`))
		default:
			io.WriteString(w, chatResponse(`{"project_id":"P-1","project_name":"Apollo","rating_date":"2024-03-01","optic_ratings":[{"optic_name":"Schedule","rating":"Amber","justification":"j","recommendation":"r"},{"optic_name":"Budget","rating":"Amber","justification":"j","recommendation":"r"}]}`))
		}
	}))
	defer srv.Close()

	client := NewClient(config.EngineConfig{BaseURL: srv.URL, Model: "test-model"}, testOptics(), srv.Client())
	record, err := client.RateProject(context.Background(), project.Key{ID: "P-1", Name: "Apollo"}, "Executive Summary: all fine")
	if err != nil {
		t.Fatalf("rate project: %v", err)
	}
	if len(prompts) != 3 {
		t.Fatalf("expected 2 specialist calls + 1 consolidation, got %d", len(prompts))
	}
	if len(record.TasksOutput) != 3 {
		t.Fatalf("expected 3 task outputs, got %d", len(record.TasksOutput))
	}
	last := record.TasksOutput[len(record.TasksOutput)-1]
	if last.Agent != config.DefaultConsolidatorRole {
		t.Fatalf("last task should be the consolidator, got %q", last.Agent)
	}
	var rating project.Rating
	if err := json.Unmarshal(last.JSONDict, &rating); err != nil {
		t.Fatalf("consolidator payload: %v", err)
	}
	if rating.ProjectID != "P-1" || len(rating.OpticRatings) != 2 {
		t.Fatalf("unexpected consolidated rating: %+v", rating)
	}
	if !strings.Contains(prompts[2], "Specialist verdicts") {
		t.Fatalf("consolidation prompt missing verdicts: %s", prompts[2])
	}
}

func TestRateProjectIsolatesProjects(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		io.WriteString(w, chatResponse(`{"optic_name":"Schedule","rating":"Green","justification":"j","recommendation":"r"}`))
	}))
	defer srv.Close()

	optics := config.Optics{
		ConsolidatorRole: config.DefaultConsolidatorRole,
		Optics:           testOptics().Optics[:1],
	}
	client := NewClient(config.EngineConfig{BaseURL: srv.URL, Model: "test-model"}, optics, srv.Client())

	if _, err := client.RateProject(context.Background(), project.Key{ID: "P-1", Name: "Apollo"}, "FIRST PROJECT TEXT"); err != nil {
		t.Fatalf("first project: %v", err)
	}
	if _, err := client.RateProject(context.Background(), project.Key{ID: "P-2", Name: "Borealis"}, "SECOND PROJECT TEXT"); err != nil {
		t.Fatalf("second project: %v", err)
	}
	for _, body := range bodies[2:] {
		if strings.Contains(body, "FIRST PROJECT TEXT") {
			t.Fatalf("second project's prompt leaked first project's text")
		}
	}
}

func TestRateProjectEmptyText(t *testing.T) {
	client := NewClient(config.EngineConfig{BaseURL: "http://unused", Model: "m"}, testOptics(), nil)
	if _, err := client.RateProject(context.Background(), project.Key{ID: "P-1", Name: "Apollo"}, "  "); err == nil {
		t.Fatalf("expected error for empty project text")
	}
}

func TestRateProjectSpecialistFailureSkipped(t *testing.T) {
	var call int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		switch call {
		case 1:
			http.Error(w, "boom", http.StatusInternalServerError)
		case 2:
			io.WriteString(w, chatResponse(`{"optic_name":"Budget","rating":"Green","justification":"j","recommendation":"r"}`))
		default:
			io.WriteString(w, chatResponse(`{"project_id":"P-1","project_name":"Apollo","rating_date":"2024-03-01","optic_ratings":[{"optic_name":"Budget","rating":"Green","justification":"j","recommendation":"r"}]}`))
		}
	}))
	defer srv.Close()

	client := NewClient(config.EngineConfig{BaseURL: srv.URL, Model: "m"}, testOptics(), srv.Client())
	record, err := client.RateProject(context.Background(), project.Key{ID: "P-1", Name: "Apollo"}, "text")
	if err != nil {
		t.Fatalf("one failed specialist should not fail the project: %v", err)
	}
	// failed Schedule call contributes no task output
	if len(record.TasksOutput) != 2 {
		t.Fatalf("expected Budget + consolidator outputs, got %d", len(record.TasksOutput))
	}
}

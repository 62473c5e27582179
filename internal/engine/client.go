package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"risk_framework/internal/config"
	"risk_framework/internal/project"
	"risk_framework/internal/ratings"
)

// Client drives an OpenAI-compatible chat-completions endpoint as a
// multi-agent rating engine: one specialist call per optic, then one
// consolidation call that merges the specialist verdicts into a single
// ProjectRating.
type Client struct {
	httpClient *http.Client
	cfg        config.EngineConfig
	optics     config.Optics
	now        func() time.Time
}

func NewClient(cfg config.EngineConfig, optics config.Optics, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		optics:     optics,
		now:        config.Now,
	}
}

// RateProject runs the full agent sequence for one project. The prompt for
// each call contains only this project's text; nothing carries over between
// projects. Specialist failures are logged and skipped so one flaky optic
// does not sink the run; a failed consolidation call fails the project.
func (c *Client) RateProject(ctx context.Context, key project.Key, text string) (ratings.ExecutionRecord, error) {
	if strings.TrimSpace(text) == "" {
		return ratings.ExecutionRecord{}, fmt.Errorf("no text to rate for %s", key.ID)
	}

	var record ratings.ExecutionRecord
	var verdicts []specialistVerdict

	for _, optic := range c.optics.Optics {
		agent := agentName(optic)
		content, err := c.callChat(ctx, specialistSystemPrompt(optic), specialistUserPrompt(key, optic, text))
		if err != nil {
			log.Printf("engine: %s/%s specialist call failed: %v", key.ID, optic.Name, err)
			continue
		}
		result := ParseResult(content)
		record.TasksOutput = append(record.TasksOutput, taskOutput(agent, result))
		if result.Kind == KindStructured {
			verdicts = append(verdicts, specialistVerdict{OpticName: optic.Name, Payload: result.Structured})
		} else {
			log.Printf("engine: %s/%s returned unstructured output", key.ID, optic.Name)
		}
	}

	if len(verdicts) == 0 {
		return record, fmt.Errorf("no specialist verdicts for %s", key.ID)
	}

	content, err := c.callChat(ctx, c.consolidationSystemPrompt(), c.consolidationUserPrompt(key, verdicts))
	if err != nil {
		return record, fmt.Errorf("consolidation call for %s: %w", key.ID, err)
	}
	record.TasksOutput = append(record.TasksOutput, taskOutput(c.optics.ConsolidatorRole, ParseResult(content)))
	return record, nil
}

type specialistVerdict struct {
	OpticName string
	Payload   json.RawMessage
}

func agentName(optic config.Optic) string {
	if role := strings.TrimSpace(optic.Agent.Role); role != "" {
		return role
	}
	return optic.Name + " Risk Analyst"
}

// taskOutput converts a parsed result into the execution-record shape. Raw
// text survives under a "raw" key so downstream consumers can still show it.
func taskOutput(agent string, result Result) ratings.TaskOutput {
	out := ratings.TaskOutput{Agent: agent}
	switch result.Kind {
	case KindStructured:
		out.JSONDict = result.Structured
	case KindRawText:
		raw, _ := json.Marshal(map[string]string{"raw": result.Raw})
		out.JSONDict = raw
	}
	return out
}

func specialistSystemPrompt(optic config.Optic) string {
	var b strings.Builder
	role := agentName(optic)
	b.WriteString("You are " + role + ".\n")
	if goal := strings.TrimSpace(optic.Agent.Goal); goal != "" {
		b.WriteString("Goal: " + goal + "\n")
	}
	if backstory := strings.TrimSpace(optic.Agent.Backstory); backstory != "" {
		b.WriteString("Background: " + backstory + "\n")
	}
	b.WriteString("Rate the project on the \"" + optic.Name + "\" optic using these criteria:\n")
	b.WriteString("- Green: " + optic.Criteria.Green + "\n")
	b.WriteString("- Amber: " + optic.Criteria.Amber + "\n")
	b.WriteString("- Red: " + optic.Criteria.Red + "\n")
	b.WriteString(`Return STRICT JSON ONLY with keys: optic_name, rating, justification, recommendation.
Rules:
- optic_name must be "` + optic.Name + `"
- rating must be "Red", "Amber", or "Green"
- justification quotes or closely paraphrases the provided text
- no invented facts; use ONLY the provided project status text`)
	return b.String()
}

func specialistUserPrompt(key project.Key, optic config.Optic, text string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Project ID: %s\nProject Name: %s\nOptic: %s\n\n", key.ID, key.Name, optic.Name))
	b.WriteString("Project status text:\n")
	b.WriteString(text)
	return b.String()
}

func (c *Client) consolidationSystemPrompt() string {
	names := strings.Join(c.optics.Names(), ", ")
	return strings.TrimSpace(fmt.Sprintf(`You are the %s.
Merge the specialist verdicts into one final project risk rating.
Return STRICT JSON ONLY with keys: project_id, project_name, rating_date, optic_ratings.
Rules:
- optic_ratings is an array with one entry per optic (%s)
- each entry has keys: optic_name, rating, justification, recommendation
- rating must be "Red", "Amber", or "Green"
- keep each specialist's rating unless verdicts for the same optic conflict
- rating_date must be the analysis date provided`, c.optics.ConsolidatorRole, names))
}

func (c *Client) consolidationUserPrompt(key project.Key, verdicts []specialistVerdict) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Project ID: %s\nProject Name: %s\nAnalysis date: %s\n\n", key.ID, key.Name, c.now().Format("2006-01-02")))
	b.WriteString("Specialist verdicts:\n")
	for _, v := range verdicts {
		b.WriteString("- " + v.OpticName + ": ")
		b.Write(v.Payload)
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Client) callChat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	payload := map[string]interface{}{
		"model":       c.cfg.Model,
		"temperature": 0.2,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("engine status %d: %s", resp.StatusCode, string(body))
	}
	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return "", err
	}
	if len(wrapper.Choices) == 0 {
		return "", errors.New("empty engine response")
	}
	return strings.TrimSpace(wrapper.Choices[0].Message.Content), nil
}

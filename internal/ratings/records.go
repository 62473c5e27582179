package ratings

import "encoding/json"

// TaskOutput is one agent's contribution inside an execution record.
// json_dict is left raw: specialist payloads and the consolidator payload
// have different shapes, and only the consolidator's is persisted.
type TaskOutput struct {
	Agent    string          `json:"agent"`
	JSONDict json.RawMessage `json:"json_dict"`
}

// ExecutionRecord wraps one engine run's nested task outputs. This is the
// intermediate JSON artifact shared between the engine client and the
// aggregator.
type ExecutionRecord struct {
	TasksOutput []TaskOutput `json:"tasks_output"`
}

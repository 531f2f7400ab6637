package models

// TaskList is the response of GET /api/tasks.
type TaskList struct {
	Tasks []string `json:"tasks"`
}

// VersionList is the response of GET /api/tasks/{task}/versions.
type VersionList struct {
	Versions []string `json:"versions"`
}

// ModelCatalog is the response of GET /api/models. The backend also
// reports intermediate tiers; the client only relies on All and Fast.
type ModelCatalog struct {
	All  []string `json:"all"`
	Fast []string `json:"fast"`
}

// PromptDetail is the response of GET /api/tasks/{task}/versions/{v}/prompt.
type PromptDetail struct {
	Template       string                 `json:"template"`
	Constraints    map[string]interface{} `json:"constraints"`
	TaskType       string                 `json:"task_type"`
	InputVariables []string               `json:"input_variables"`
	SchemaFields   []string               `json:"schema_fields"`
}

// GenerateResult is the synchronous response of POST /api/test-cases/generate.
type GenerateResult struct {
	Success   bool     `json:"success"`
	TestCases []string `json:"test_cases"`
}

// HealthStatus is the response of GET /api/health. The client treats it as
// an opaque ok marker; extra fields from richer backends are tolerated.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

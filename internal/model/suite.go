package model

import "time"

// Priority is a coarse ordering tier for suite scheduling.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityRank returns the tier's scheduling rank, lower runs first.
// An unknown priority (config validation should have already rejected it)
// sorts last.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// DependencyRef is one entry in a suite's `depends` list: either an explicit
// node-id or a path relative to the suite file.
type DependencyRef struct {
	NodeID string `yaml:"node_id,omitempty" json:"node_id,omitempty"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Hooks are optional before/after step sequences run around a suite.
type Hooks struct {
	BeforeAll []Step `yaml:"before_all,omitempty" json:"before_all,omitempty"`
	AfterAll  []Step `yaml:"after_all,omitempty" json:"after_all,omitempty"`
}

// AuthBlock configures suite-level authentication merged into every
// request's headers before interpolation.
type AuthBlock struct {
	Type         string `yaml:"type" json:"type"` // bearer | basic | oauth2_client_credentials
	Token        string `yaml:"token,omitempty" json:"token,omitempty"`
	Username     string `yaml:"username,omitempty" json:"username,omitempty"`
	Password     string `yaml:"password,omitempty" json:"password,omitempty"`
	TokenURL     string `yaml:"token_url,omitempty" json:"token_url,omitempty"`
	ClientID     string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// Suite is the parsed contents of one YAML suite file. Immutable once
// Discovery hands it to the rest of the pipeline.
type Suite struct {
	NodeID    string                 `yaml:"node_id" json:"node_id"`
	Name      string                 `yaml:"suite_name" json:"suite_name"`
	Priority  Priority               `yaml:"priority,omitempty" json:"priority,omitempty"`
	Tags      []string               `yaml:"tags,omitempty" json:"tags,omitempty"`
	BaseURL   string                 `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Depends   []DependencyRef        `yaml:"depends,omitempty" json:"depends,omitempty"`
	Variables map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
	Steps     []Step                 `yaml:"steps,omitempty" json:"steps,omitempty"`
	BeforeAll []Step                 `yaml:"before_all,omitempty" json:"before_all,omitempty"`
	AfterAll  []Step                 `yaml:"after_all,omitempty" json:"after_all,omitempty"`
	Auth      *AuthBlock             `yaml:"auth,omitempty" json:"auth,omitempty"`

	// FilePath is set by Discovery, not part of the YAML document.
	FilePath string `yaml:"-" json:"-"`
}

// RequestSpec describes one HTTP request before interpolation.
type RequestSpec struct {
	Method    string                 `yaml:"method" json:"method"`
	URL       string                 `yaml:"url" json:"url"`
	Headers   map[string]string      `yaml:"headers,omitempty" json:"headers,omitempty"`
	Query     map[string]string      `yaml:"query,omitempty" json:"query,omitempty"`
	Body      interface{}            `yaml:"body,omitempty" json:"body,omitempty"`
	TimeoutMs int                    `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// CallSpec invokes another suite by node-id, passing an input map into its
// call scope.
type CallSpec struct {
	NodeID string                 `yaml:"node_id" json:"node_id"`
	Inputs map[string]interface{} `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// InputSpec prompts the user for a value; in non-interactive mode (no TTY)
// this is a fail-fast condition.
type InputSpec struct {
	Prompt  string `yaml:"prompt" json:"prompt"`
	SaveAs  string `yaml:"save_as" json:"save_as"`
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

// CaptureSpec is one `capture` entry: variable name -> extractor, with
// optional promotion and overwrite policy.
type CaptureSpec struct {
	Extractor string `yaml:"-" json:"-"`
	Promote   string `yaml:"promote,omitempty" json:"promote,omitempty"` // "" | suite | global
	Overwrite bool   `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
}

// AssertSpec is one `assert` entry: field path -> rule.
type AssertSpec struct {
	FieldPath string                 `yaml:"-" json:"-"`
	Rule      string                 `yaml:"-" json:"-"`
	Expected  interface{}            `yaml:"-" json:"-"`
	Raw       map[string]interface{} `yaml:"-" json:"-"`
}

// ScenarioBranch is the assert/capture bundle for a then: or else: branch.
type ScenarioBranch struct {
	Assert  map[string]interface{} `yaml:"assert,omitempty" json:"assert,omitempty"`
	Capture map[string]string      `yaml:"capture,omitempty" json:"capture,omitempty"`
}

// ScenarioSpec is one conditional branch on a step.
type ScenarioSpec struct {
	Condition string          `yaml:"condition" json:"condition"`
	Then      *ScenarioBranch `yaml:"then,omitempty" json:"then,omitempty"`
	Else      *ScenarioBranch `yaml:"else,omitempty" json:"else,omitempty"`
}

// IterateSpec expands a step into N iterations.
type IterateSpec struct {
	Over  string `yaml:"over,omitempty" json:"over,omitempty"`
	Count string `yaml:"count,omitempty" json:"count,omitempty"`
	As    string `yaml:"as" json:"as"`
}

// Step is one executable unit within a suite.
type Step struct {
	Name       string                    `yaml:"name" json:"name"`
	Request    *RequestSpec              `yaml:"request,omitempty" json:"request,omitempty"`
	Call       *CallSpec                 `yaml:"call,omitempty" json:"call,omitempty"`
	Input      *InputSpec                `yaml:"input,omitempty" json:"input,omitempty"`
	Capture    map[string]interface{}    `yaml:"capture,omitempty" json:"capture,omitempty"`
	Assert     map[string]interface{}    `yaml:"assert,omitempty" json:"assert,omitempty"`
	Scenarios  []ScenarioSpec            `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Iterate    *IterateSpec              `yaml:"iterate,omitempty" json:"iterate,omitempty"`
	PreScript  string                    `yaml:"pre_script,omitempty" json:"pre_script,omitempty"`
	PostScript string                    `yaml:"post_script,omitempty" json:"post_script,omitempty"`
	ContinueOnFailure bool               `yaml:"continue_on_failure,omitempty" json:"continue_on_failure,omitempty"`
}

// StepStatus is a StepResult's terminal status.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusFailure StepStatus = "failure"
	StatusSkipped StepStatus = "skipped"
)

// AssertionOutcome records the evaluation of one assertion rule.
type AssertionOutcome struct {
	FieldPath string      `json:"field_path"`
	Rule      string      `json:"rule"`
	Passed    bool        `json:"passed"`
	Expected  interface{} `json:"expected"`
	Actual    interface{} `json:"actual"`
	Message   string      `json:"message,omitempty"`
}

// ScenarioEvaluation records one scenario's outcome on a StepResult.
type ScenarioEvaluation struct {
	Condition       string `json:"condition"`
	Matched         bool   `json:"matched"`
	Executed        bool   `json:"executed"`
	Branch          string `json:"branch,omitempty"` // "then" | "else" | ""
	AssertionsAdded int    `json:"assertions_added"`
	CapturesAdded   int    `json:"captures_added"`
}

// RawExchange records the wire-level request/response for reporting.
type RawExchange struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body,omitempty"`
	StatusCode  int               `json:"status_code,omitempty"`
	RespHeaders map[string]string `json:"response_headers,omitempty"`
	RespBody    string            `json:"response_body,omitempty"`
	CurlEquiv   string            `json:"curl_equivalent,omitempty"`
	Attempt     int               `json:"attempt"`
}

// StepResult is the outcome of executing one step (or one iteration of it).
type StepResult struct {
	StepName      string               `json:"step_name"`
	Status        StepStatus           `json:"status"`
	DurationMs    int64                `json:"duration_ms"`
	Request       *RawExchange         `json:"request,omitempty"`
	Attempts      []RawExchange        `json:"attempts,omitempty"`
	Assertions    []AssertionOutcome   `json:"assertions,omitempty"`
	Captured      map[string]Value     `json:"captured,omitempty"`
	ScenariosMeta []ScenarioEvaluation `json:"scenarios_meta,omitempty"`
	Iterations    []StepResult         `json:"iterations,omitempty"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	ErrorKind     string               `json:"error_kind,omitempty"`
}

// SuiteStatus is a SuiteResult's terminal status.
type SuiteStatus string

const (
	SuiteSuccess SuiteStatus = "success"
	SuiteFailure SuiteStatus = "failure"
	SuiteSkipped SuiteStatus = "skipped"
)

// SuiteResult is the outcome of executing one suite.
type SuiteResult struct {
	NodeID           string         `json:"node_id"`
	SuiteName        string         `json:"suite_name"`
	Status           SuiteStatus    `json:"status"`
	DurationMs       int64          `json:"duration_ms"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Steps            []StepResult   `json:"steps"`
	CapturedPromoted map[string]Value `json:"captured_promoted,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// AggregatedResult is the final outcome of one engine run.
type AggregatedResult struct {
	RunID          string        `json:"run_id,omitempty"`
	ProjectName    string        `json:"project_name"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	TotalTests     int           `json:"total_tests"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	SuccessRate    float64       `json:"success_rate"`
	TotalDurationMs int64        `json:"total_duration_ms"`
	Suites         []SuiteResult `json:"suites"`
}

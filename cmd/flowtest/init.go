package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigTemplate = `project_name: my-api
test_directory: ./tests
globals:
  variables: {}
  timeouts:
    default: 30000
    slow_tests: 60000
discovery:
  patterns:
    - "**/*.yaml"
    - "**/*.yml"
  exclude:
    - "**/node_modules/**"
priorities:
  levels: [critical, high, medium, low]
  required: [critical]
  fail_fast_on_required: true
execution:
  mode: parallel
  max_parallel: 4
  continue_on_failure: false
  retry_failed:
    enabled: false
    max_attempts: 3
    delay_ms: 500
reporting:
  formats: [json]
  output_dir: ./results
filters: {}
`

const exampleSuiteTemplate = `node_id: health-check
suite_name: Health Check
priority: critical
base_url: https://api.example.com
steps:
  - name: get_health
    request:
      method: GET
      url: /health
    assert:
      status_code:
        equals: 200
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a starter config and example suite",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat("flow-test.config.yml"); err == nil {
			return fmt.Errorf("flow-test.config.yml already exists")
		}
		if err := os.WriteFile("flow-test.config.yml", []byte(defaultConfigTemplate), 0644); err != nil {
			return fmt.Errorf("cannot write flow-test.config.yml: %w", err)
		}

		if err := os.MkdirAll("tests", 0755); err != nil {
			return fmt.Errorf("cannot create tests directory: %w", err)
		}
		examplePath := filepath.Join("tests", "health-check.yaml")
		if _, err := os.Stat(examplePath); os.IsNotExist(err) {
			if err := os.WriteFile(examplePath, []byte(exampleSuiteTemplate), 0644); err != nil {
				return fmt.Errorf("cannot write example suite: %w", err)
			}
		}

		fmt.Println("Initialized flow-test.config.yml and tests/health-check.yaml")
		return nil
	},
}

// Package openapi converts an OpenAPI 3.x document into a suite YAML
// skeleton: one step per operation, with an `assert: status_code` present
// and no other authoring done for the caller.
package openapi

import (
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"gopkg.in/yaml.v3"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Import parses an OpenAPI 3.x document and returns a single Suite, with
// node-id nodeIDPrefix, holding one step per operation; operations are not
// grouped by tag.
func Import(content []byte, nodeIDPrefix string) ([]*model.Suite, error) {
	document, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("openapi: cannot parse document: %w", err)
	}
	doc, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("openapi: cannot build v3 model: %w", err)
	}

	baseURL := ""
	if len(doc.Model.Servers) > 0 {
		baseURL = doc.Model.Servers[0].URL
	}

	suite := &model.Suite{
		NodeID:  nodeIDPrefix,
		Name:    doc.Model.Info.Title,
		BaseURL: baseURL,
	}

	for pair := doc.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := map[string]*v3.Operation{
			"GET":    item.Get,
			"POST":   item.Post,
			"PUT":    item.Put,
			"DELETE": item.Delete,
			"PATCH":  item.Patch,
		}
		for method, op := range ops {
			if op == nil {
				continue
			}
			name := op.OperationId
			if name == "" {
				name = strings.ToLower(method) + "_" + sanitizeStepName(path)
			}
			step := model.Step{
				Name: name,
				Request: &model.RequestSpec{
					Method: method,
					URL:    path,
				},
				Assert: map[string]interface{}{
					"status_code": map[string]interface{}{"less_than": 500},
				},
			}
			suite.Steps = append(suite.Steps, step)
		}
	}

	return []*model.Suite{suite}, nil
}

func sanitizeStepName(path string) string {
	r := strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_")
	s := strings.Trim(r.Replace(path), "_")
	if s == "" {
		return "root"
	}
	return s
}

// Marshal renders a suite back to YAML bytes the user can save and edit.
func Marshal(suite *model.Suite) ([]byte, error) {
	return yaml.Marshal(suite)
}

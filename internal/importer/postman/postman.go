// Package postman converts a Postman Collection v2.1 export into a suite
// YAML skeleton, and exports a suite back out as a minimal collection so
// the two formats interoperate.
package postman

import (
	"fmt"
	"strings"

	postmancol "github.com/rbretecher/go-postman-collection"
	"gopkg.in/yaml.v3"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Import parses a Postman collection export into one Suite, with one step
// per request (folders are flattened).
func Import(content []byte, nodeID string) (*model.Suite, error) {
	r := strings.NewReader(string(content))
	collection, err := postmancol.ParseCollection(r)
	if err != nil {
		return nil, fmt.Errorf("postman: cannot parse collection: %w", err)
	}

	suite := &model.Suite{
		NodeID: nodeID,
		Name:   collection.Info.Name,
	}
	walkItems(collection.Items, suite)
	return suite, nil
}

func walkItems(items []*postmancol.Items, suite *model.Suite) {
	for _, item := range items {
		if item.IsGroup() {
			walkItems(item.Items, suite)
			continue
		}
		if item.Request == nil {
			continue
		}
		req := item.Request
		step := model.Step{
			Name: sanitizeStepName(item.Name),
			Request: &model.RequestSpec{
				Method: string(req.Method),
			},
		}
		if req.URL != nil {
			step.Request.URL = req.URL.Raw
		}
		if len(req.Header) > 0 {
			step.Request.Headers = make(map[string]string, len(req.Header))
			for _, h := range req.Header {
				step.Request.Headers[h.Key] = h.Value
			}
		}
		suite.Steps = append(suite.Steps, step)
	}
}

func sanitizeStepName(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "request"
	}
	return s
}

// Export renders suite as a minimal Postman v2.1 collection.
func Export(suite *model.Suite) (*postmancol.Collection, error) {
	c := postmancol.CreateCollection(suite.Name, "")
	for _, step := range suite.Steps {
		if step.Request == nil {
			continue
		}
		item := postmancol.CreateItem(postmancol.Item{
			Name: step.Name,
			Request: &postmancol.Request{
				URL:    &postmancol.URL{Raw: step.Request.URL},
				Method: postmancol.Method(step.Request.Method),
			},
		})
		c.AddItem(item)
	}
	return c, nil
}

// Marshal renders a suite back to YAML bytes.
func Marshal(suite *model.Suite) ([]byte, error) {
	return yaml.Marshal(suite)
}

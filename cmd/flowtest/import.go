package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcuspmd/flow-test-sub005/internal/importer/openapi"
	"github.com/marcuspmd/flow-test-sub005/internal/importer/postman"
)

var importOutDir string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Generate suite YAML skeletons from an OpenAPI document or a Postman collection",
}

var importOpenAPICmd = &cobra.Command{
	Use:   "openapi [file]",
	Short: "Import an OpenAPI 3.x document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", args[0], err)
		}

		prefix := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		suites, err := openapi.Import(content, prefix)
		if err != nil {
			return err
		}

		for _, suite := range suites {
			out, err := openapi.Marshal(suite)
			if err != nil {
				return err
			}
			if err := writeImported(suite.NodeID, out); err != nil {
				return err
			}
		}
		return nil
	},
}

var importPostmanCmd = &cobra.Command{
	Use:   "postman [file]",
	Short: "Import a Postman Collection v2.1 export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", args[0], err)
		}

		nodeID := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		suite, err := postman.Import(content, nodeID)
		if err != nil {
			return err
		}

		out, err := postman.Marshal(suite)
		if err != nil {
			return err
		}
		return writeImported(suite.NodeID, out)
	},
}

func writeImported(nodeID string, content []byte) error {
	if err := os.MkdirAll(importOutDir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", importOutDir, err)
	}
	path := filepath.Join(importOutDir, nodeID+".yaml")
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func init() {
	importCmd.PersistentFlags().StringVarP(&importOutDir, "out", "o", "./tests", "directory to write generated suite files into")
	importCmd.AddCommand(importOpenAPICmd, importPostmanCmd)
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/venice-go/venice"
)

var modelType string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List the models available from the Venice API.

Examples:
  venice models
  venice models --type image
  venice models --json`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVar(&modelType, "type", "", "Filter by model type (text, image, embedding)")
}

func runModels(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	var params *venice.ModelListParams
	if modelType != "" {
		params = &venice.ModelListParams{Type: modelType}
	}

	models, err := client.ListModels(context.Background(), params)
	if err != nil {
		return apiError(err)
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(models)
	}

	if len(models) == 0 {
		fmt.Println("No models available.")
		return nil
	}

	for _, m := range models {
		if m.Type != "" {
			fmt.Printf("%-40s %s\n", m.ID, m.Type)
		} else {
			fmt.Println(m.ID)
		}
	}
	return nil
}

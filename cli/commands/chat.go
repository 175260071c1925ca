package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/venice-go/venice"
)

var (
	prompt      string
	system      string
	character   string
	temperature float64
	maxTokens   int
	stream      bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send a chat completion request",
	Long: `Send a chat completion request to the Venice API.

Examples:
  venice chat --model llama-3.3-70b --prompt "Hello"
  venice chat --prompt "Hello" --stream
  venice chat --prompt "Hello" --json`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&prompt, "prompt", "", "User message (required)")
	chatCmd.Flags().StringVar(&system, "system", "", "System message")
	chatCmd.Flags().StringVar(&character, "character", "", "Character slug to respond as")
	chatCmd.Flags().Float64Var(&temperature, "temperature", 0, "Temperature (0 = use default)")
	chatCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Max completion tokens (0 = use default)")
	chatCmd.Flags().BoolVar(&stream, "stream", false, "Enable streaming output")

	_ = chatCmd.MarkFlagRequired("prompt")
}

func runChat(cmd *cobra.Command, args []string) error {
	modelID := GetModel()
	if modelID == "" {
		return exitWithCode(ExitValidation, fmt.Errorf("model required: use --model flag or set default_model in config"))
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	req := &venice.ChatRequest{Model: modelID}
	if system != "" {
		req.Messages = append(req.Messages, venice.ChatMessage{Role: venice.RoleSystem, Content: system})
	}
	req.Messages = append(req.Messages, venice.ChatMessage{Role: venice.RoleUser, Content: prompt})

	if temperature > 0 {
		req.Temperature = &temperature
	}
	if maxTokens > 0 {
		req.MaxCompletionTokens = &maxTokens
	}
	if character != "" {
		req.VeniceParameters = &venice.VeniceParameters{Character: character}
	}

	ctx := context.Background()

	if stream {
		return runStreamingChat(ctx, client, req)
	}
	return runBufferedChat(ctx, client, req)
}

func runBufferedChat(ctx context.Context, client *venice.Client, req *venice.ChatRequest) error {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return apiError(err)
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	fmt.Println(resp.Text())
	return nil
}

func runStreamingChat(ctx context.Context, client *venice.Client, req *venice.ChatRequest) error {
	s, err := client.StreamChatCompletion(ctx, req)
	if err != nil {
		return apiError(err)
	}
	defer s.Close()

	for {
		chunk, err := s.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return apiError(err)
		}
		for _, choice := range chunk.Choices {
			fmt.Print(choice.Delta.Content)
		}
	}
	fmt.Println()
	return nil
}

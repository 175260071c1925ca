// Package venice is an unofficial Go client for the Venice AI API.
//
// It provides typed access to chat completions, image generation,
// embeddings, model listing, characters, API-key management, and billing
// usage, on top of a shared request pipeline with admission control,
// retries with backoff, and middleware chaining.
//
//	client := venice.New(apiKey)
//	resp, err := client.CreateChatCompletion(ctx, &venice.ChatRequest{
//	    Model: "llama-3.3-70b",
//	    Messages: []venice.ChatMessage{
//	        {Role: venice.RoleUser, Content: "Hello"},
//	    },
//	})
//
// Streaming responses are consumed as a pull-based iterator:
//
//	stream, err := client.StreamChatCompletion(ctx, req)
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package venice

package llm

import (
	"context"
	"fmt"
)

// ToolResult is what a tool hands back to the model.
type ToolResult struct {
	Content string

	// IsError marks a refusal or bad arguments. The text is still sent to
	// the model so it can recover; the loop continues.
	IsError bool
}

// ToolExecutor runs tool calls issued by the model. A returned error is
// fatal and aborts the loop; use ToolResult.IsError for recoverable problems.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// ToolRun is the outcome of RunTools.
type ToolRun struct {
	// Response is the final, tool-free model reply.
	Response *Response

	// Rounds is the number of model calls made.
	Rounds int

	// Usage is summed over all rounds.
	Usage Usage
}

// RunTools calls the model, executes the tools it asks for and feeds the
// results back until the model replies without tool calls. maxRounds bounds
// the number of model calls; exceeding it returns ErrToolLoopExceeded.
// req is not modified.
func RunTools(ctx context.Context, client Client, req *Request, exec ToolExecutor, maxRounds int) (*ToolRun, error) {
	conv := *req
	conv.Messages = append([]Message(nil), req.Messages...)

	run := &ToolRun{}
	for run.Rounds < maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := client.Complete(ctx, &conv)
		run.Rounds++
		if err != nil {
			return nil, err
		}
		run.Usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			run.Response = resp
			return run, nil
		}

		conv.Messages = append(conv.Messages, resp.Message())
		for _, call := range resp.ToolCalls {
			result, err := exec.Execute(ctx, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
			}
			content := result.Content
			if result.IsError {
				content = "Error: " + content
			}
			conv.Messages = append(conv.Messages, ToolResultMessage(call, content))
		}
	}
	return nil, fmt.Errorf("%w (%d rounds)", ErrToolLoopExceeded, maxRounds)
}

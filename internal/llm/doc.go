// Package llm is the language model client used by the three report stages.
//
// A Client sends one Request (system instruction, messages with optional
// image attachments, optional tool definitions) and returns one Response.
// Two providers are implemented:
//   - OpenAIClient speaks the chat completions API of OpenAI and compatible
//     servers over plain HTTP.
//   - GeminiClient uses google.golang.org/genai.
//
// Neither client retries. Any transport error, non-2xx status or malformed
// body is returned to the caller, which treats it as terminal.
//
// RunTools drives the bounded tool calling loop used by the research stage.
package llm

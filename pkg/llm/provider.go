// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm generates answer text from a system prompt, conversation
// history, and a user prompt, streaming the response token by token.
// Providers run at near-zero temperature and never request tool use or
// structured output: an agent's job is to answer from the passages it
// was given, not to call out to anything else.
package llm

import "context"

// Message is one turn of conversation history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// StreamChunk is one piece of a streaming generation.
type StreamChunk struct {
	Type  string // "text", "done", "error"
	Text  string // set when Type == "text"
	Error error  // set when Type == "error"
}

// Provider generates streaming completions from a single LLM backend.
type Provider interface {
	// GenerateStreaming streams the answer for userPrompt given systemPrompt
	// and prior history. The returned channel is closed after a "done" or
	// "error" chunk.
	GenerateStreaming(ctx context.Context, systemPrompt string, history []Message, userPrompt string) (<-chan StreamChunk, error)

	// Model returns the model name in use, for logging.
	Model() string

	// Close releases any resources held by the provider.
	Close() error
}

// streamChannelBufferSize bounds how far a provider's SSE reader can run
// ahead of the consumer before blocking.
const streamChannelBufferSize = 32

// Package model defines the provider-agnostic request and response shapes for
// talking to language models inside GaiaKit.
//
// A single Generate call covers streaming and non-streaming generation, tool
// and function calls are normalized through ToolDefinition, and ScriptedModel
// gives tests a deterministic stand-in.
//
// Providers (openai, anthropic) implement the Model interface from this
// package so higher layers (agents, the engine) remain decoupled from vendor
// SDKs. Requests carry a Silent flag for side-channel calls and an optional
// ResponseSchema for structured output; adapters translate both to whatever
// their provider supports.
package model

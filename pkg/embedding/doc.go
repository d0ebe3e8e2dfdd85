// Package embedding loads text-embedding models by identifier and encodes
// query text into vectors.
//
// An identifier has the form "provider:model". A bare model name uses the
// configured default provider. Supported providers:
//
//   - openai: any OpenAI-compatible /v1/embeddings server (TEI, infinity,
//     vLLM, LM Studio) hosting sentence-transformers models
//   - ollama: a local Ollama server
//   - localai: a LocalAI server
//   - gemini: the Google Gemini API
//
// Models optionally consult a badger-backed cache before calling the
// provider. Normalization to unit length happens locally so every provider
// honors the normalize flag the same way.
package embedding

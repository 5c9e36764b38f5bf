// Package oracle consults an external language model when scoring cannot
// decide where a download belongs. The model answers with a single rule
// name, an ambiguous pair, or an explicit abstention; anything else is
// normalized away during parsing.
//
// The client targets the OpenRouter chat completions API and retries
// transient failures with exponential backoff, honoring Retry-After on 429
// and 5xx responses.
package oracle

/*
Package ports defines the driven ports (interfaces) of the wayfarer planner.

These interfaces decouple the orchestration core from the completion service,
the preference extraction strategy and the run result cache, so that the
engine can be exercised with fakes in tests and with real adapters in the
binaries.

# Key Interfaces

  - Completer: a chat completion service (system prompt, user prompt, temperature → text).
  - Extractor: turns a free-text request into domain.Preferences.
  - RunStore: ephemeral cache of finished runs, keyed by run ID.
*/
package ports

// Package manager provides the standard prompt-driven core.Manager
// implementation. It derives the task ledger (facts and plan), judges
// per-round progress as a structured JSON ledger, and synthesizes the final
// answer, all through a minimal Completer interface so any text-generation
// backend can drive it. MockCompleter offers a scripted backend for tests
// and examples.
package manager

// Package tavernkit assembles deterministic, budget-respecting LLM prompts
// from a character definition, a user persona, a preset, chat history, and
// optional lorebooks and programmatic injections.
//
// The package implements the prompt-construction core only: lore activation,
// prompt-entry assembly, programmatic injection, macro expansion, and
// token-budgeted trimming. Character-card decoding, LLM transport, and chat
// persistence are left to the host application; tavernkit consumes the
// normalized types in this package and the History/VariableStore interfaces
// it declares.
package tavernkit

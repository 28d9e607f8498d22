// Package workflow drives the human in the loop dialog that turns source
// items into illustrated flashcards.
//
// A run has three phases. While stepping, every item is searched and the
// presenter picks one image or skips it. The review phase shows every
// selection and lets the user create, restart or cancel. Commit sends the
// found selections to the store one after another and never stops early.
// A single item skips the review and defaults to the first candidate.
//
// The controller owns all state transitions. Presenters only render and
// return decisions, so terminal, desktop and scripted front ends share the
// same behavior.
package workflow

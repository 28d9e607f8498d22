// Package models lists the Anki note types reachable through AnkiConnect,
// with their fields, and the OpenAI chat models that can be configured as
// search term suggesters.
package models

// Package anki talks to Anki: live through the AnkiConnect add-on, or
// offline by writing .apkg and CSV import files.
package anki

// Package processor contains the application logic behind the flashpix
// commands. It splits the input into items, checks the AnkiConnect
// connection, picks a presenter and runs the workflow controller, and
// implements the non-interactive list mode and the diagnostic commands.
package processor

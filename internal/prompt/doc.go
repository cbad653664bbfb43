// Package prompt holds the fixed instructions of the three stages and builds
// the text each stage sends to its model.
//
// The input builders are exact: the research input starts with
// "Insect identified in: <location>" and the synthesis input lists the
// identification, location, context and research results in a fixed order.
// Stage outputs are inserted verbatim.
//
// Check* functions look for the markers the instructions ask for. A missing
// marker is a warning, never an error: the models are trusted to follow the
// format and the orchestrator only reports drift.
package prompt

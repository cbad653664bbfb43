// Package pipeline runs a submission through the three report stages.
//
// A Pipeline executes Steps in order against a model.Run. Before each step
// the run is moved to the step's state; after the last step it is moved to
// done. Any step error fails the run, clears its stage outputs and stops the
// pipeline, so a later stage never runs on a failed earlier one.
//
// Every step runs under its own timeout derived from the caller's context.
//
// Advisor wires the stages to a language model and a search client built
// from per-submission credentials. Its precondition check runs before any
// client is built, so a missing key or a missing image makes no network
// call at all.
//
// BatchProcessor runs independent submissions concurrently with errgroup.
package pipeline

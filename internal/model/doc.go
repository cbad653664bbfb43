// Package model defines the data that flows through one pest report run.
//
// A submission starts as a RequestBundle (image, location, context), built
// once by NewRequestBundle and never mutated. The pipeline then fills a Run
// with the three stage outputs:
//   - identification text from the multimodal model
//   - the curated resource list from the research model
//   - the final markdown report
//
// Stage outputs are opaque markdown strings. Nothing in this package parses
// them; a later stage receives the earlier text verbatim.
//
// A Run moves through the State machine Idle → Identifying → Researching →
// Synthesizing → Done, or to Failed from any non-terminal state. A failed run
// holds no stage output, so no partial report can be shown.
package model

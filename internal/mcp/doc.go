// Package mcp exposes the pest control advisor as a Model Context Protocol
// tool server over stdio.
//
// One tool is registered:
//
//	generate_pest_report{image_path, location, context}
//
// It reads the image from disk, runs the full identify, research and
// synthesize pipeline, and returns the final markdown report as text.
// Failures are returned as tool results with IsError set and a JSON body
// carrying a stable error code.
package mcp

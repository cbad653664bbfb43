// Package main provides the entry point for the pestadvisor CLI.
//
// pestadvisor identifies the insect in a photo, researches localized
// organic and chemical remedies with a web search, and writes a markdown
// pest control report.
//
// Usage:
//
//	pestadvisor report --location "Pune, India" beetle.jpg
//	pestadvisor serve
//	pestadvisor mcp
//
// See --help for all available options.
package main

// main is the entry point for pestadvisor.
func main() {
	Execute()
}

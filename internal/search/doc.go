// Package search is the web search capability of the research stage.
//
// Client queries Google through SerpAPI and returns organic results. Tool
// exposes that client to a language model as the single function
// "search_google" and allows exactly one query per research stage: the
// first call is executed, later calls are answered with a tool error and
// never reach SerpAPI.
package search

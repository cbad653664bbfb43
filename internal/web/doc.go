// Package web serves the browser form for pestadvisor.
//
// The page has a sidebar for the two API keys and a form for the photo,
// location and context. Submitting the form runs the whole pipeline and
// shows the report rendered as HTML, with a download link for the
// markdown export. One submission is processed at a time.
package web

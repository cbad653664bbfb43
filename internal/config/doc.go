// Package config provides configuration structures and utilities for pestadvisor.
// It defines the model and search provider settings, stage timeouts, report
// output preferences, and the credential pair the pipeline requires.
package config

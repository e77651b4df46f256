// Package services holds the application service layer. AnalysisService is
// the single facade the transport layer talks to: it decodes uploads through
// the table cache, runs the analysis engine, attaches the narrative summary
// and renders Excel reports, with an optional ERP-backed data path.
package services

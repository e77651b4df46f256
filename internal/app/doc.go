// Package app assembles the application: it loads configuration, builds the
// decoder, analysis engine, exporter, narrative and ERP services, mounts the
// HTTP routes with the full middleware chain and manages the server
// lifecycle including graceful shutdown.
package app

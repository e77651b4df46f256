// Package http contains the HTTP handlers.
//
// # Endpoints
//
//	POST /api/analyze      multipart upload, returns the full analysis envelope
//	POST /api/analyze/erp  same analysis over data fetched from the ERP
//	GET  /api/erp/test     one authenticated ERP round trip
//	POST /api/report/excel styled workbook report, single or multi period
//	GET  /api/health       liveness plus cache counters
//
// Handlers validate input, call the service layer and translate its errors
// to the structured API error model. No analysis logic lives here.
package http

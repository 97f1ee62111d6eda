// Package importer loads a faculty schedule workbook into the store.
//
// An import reads the sheet into a grid, extracts the lessons, resolves
// group headers and subject titles to persisted entities and upserts every
// lesson. Cell and lesson level problems are collected in the Report and
// never stop the import; store failures do.
package importer

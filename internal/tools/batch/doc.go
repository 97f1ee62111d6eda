// Package batch runs one operation over many people or lessons and reports
// the outcome of each in a single JSON summary.
//
// A failure for one item never stops the others; only a cancelled context
// does, and the items left over are reported as failed.
package batch

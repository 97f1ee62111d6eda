// Package resolver turns names read from a schedule sheet into persisted
// groups, specialties and subjects.
//
// Subjects are linked to LMS courses by fuzzy title matching: titles are
// lower-cased, parenthesized text is dropped and the similarity is twice
// the longest common subsequence over the combined length.
package resolver

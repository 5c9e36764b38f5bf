// Package match implements the scoring engine that turns weak evidence
// sources (filename, URLs, page titles, cached page keyword statistics) into
// per-rule percentages and merges them into one ranked candidate list.
//
// Each scorer emits exactly one Result per candidate, zero-valued when the
// evidence says nothing; Combine depends on that invariant and joins result
// sets by rule name. The overall score of a rule is the maximum of its
// component scores, never a weighted blend.
package match

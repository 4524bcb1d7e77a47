// Package budget holds the pure monthly calculators of the household budget:
// revenue normalization, member splits, frequency conversion, provisions,
// and the monthly aggregation that folds them into a summary.
//
// Every function here is free of shared state and safe for concurrent use.
// Amounts are decimal values; member shares are rounded to cents with the
// remainder assigned to the second member so that splits never drift.
package budget

// Package descriptor serialises the explored map for storage and
// transmission.
//
// Wire form:
//
// A Descriptor has two hex strings, both scanned row-major from row 0.
// Part 1 carries one explored bit per cell between a leading and a
// trailing "11" sentinel, padded with zero bits on the right to a whole
// hex digit. Part 2 carries one obstacle bit per explored cell only; when
// the bit count is not a multiple of four, the final group is written
// right-aligned as its own hex digit. Decode derives the number of
// significant Part 2 bits from the explored count in Part 1, so the two
// parts must always travel together.
//
// Legacy form:
//
// Map files store one ASCII '0' or '1' per cell, rows from the last to the
// first and columns from the first to the last. Loading a legacy file sets
// obstacles and marks the whole grid explored. The two forms are not
// interchangeable.
package descriptor

// Package instruction converts routes into the compact movement-command
// strings understood by the robot's motion controller.
//
// A digit token advances that many cells (at most 9 per token). An
// uppercase letter rotates clockwise by its alphabet index in quarter
// turns: A is a right turn, B an about-face, C a left turn. Strings from
// back-to-back plans are joined with Merge, which folds a trailing turn and
// a leading turn into one letter.
package instruction

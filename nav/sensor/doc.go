// Package sensor abstracts what the robot sees from its current pose.
//
// A Model returns one distance per mounted sensor. Simulated answers from a
// ground-truth reference map; Remote waits for the robot to report its
// readings over the robot link. Apply folds a set of readings into the
// explored map.
package sensor

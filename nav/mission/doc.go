// Package mission runs the full hardware sequence over the robot link.
//
// A run receives the waypoint from the tablet ("row col"), optionally waits
// for EX_START, sends BOT_START and explores using the sensor readings the
// robot reports after every command. When exploration ends the map
// descriptor and robot position are sent to the tablet. The fastest route
// start → waypoint → goal is then planned in two legs, merged, prefixed
// with the start marker and sent to the motor controller, optionally after
// FP_START.
//
// Any transport failure during a mission is fatal and is returned to the
// caller.
//
// VirtualRobot implements comm.Transport in-process over a reference map so
// the same sequence can be rehearsed without hardware.
package mission

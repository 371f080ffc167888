// Package comm provides the text link between the navigator and the robot's
// relay board.
//
// Messages are short ASCII strings. Outgoing payloads are framed by kind:
//
//	MAP, BOT_POS            "AN" + payload + "Q"   (to the tablet)
//	every other kind        "AR" + payload + "Q"   (to the motor controller)
//	no payload              kind tag + "\n"
//
// Incoming messages are read one line at a time.
//
// Core Types:
//
// Transport is the boundary used by the rest of the module. TCP implements
// it over a socket; Memory implements it in-process for simulation and
// tests. A Transport is constructed by the caller that assembles a
// navigation session and passed to whichever component needs it; there is
// no package-level connection.
//
// Errors:
//
// Any failed send or receive is reported as ErrTransportUnavailable. An
// empty line is reported as ErrNoMessage. Whether these are fatal is the
// caller's decision: simulation runs treat them as "no update this cycle",
// hardware runs abort.
package comm

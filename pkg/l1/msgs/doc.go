// Package msgs provides the L1 envelope and the generic replies.
//
// L1 is the protocol between the robot (the L1 controller) and whatever
// monitors or commands it (L2): an operator shell, a telemetry monitor.
// Every message travels inside a Typed envelope carrying its type ID and,
// for commands and their replies, the sequence number of the command.
package msgs

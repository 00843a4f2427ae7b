// Package comm implements the serial link between the line follower
// firmware and the controller.
//
// Both peers exchange small packets over a byte stream (a UART in
// practice). A packet is a sequence byte, a code byte with the payload
// length packed in bits 4-6 and an optional payload. Lengths of 7 or more
// are sent in an extra byte. Codes with bit 7 set are events pushed by the
// firmware; every other packet received by the controller is a reply whose
// first payload byte is the sequence of the request it answers, and a set
// bit 0 in its code reports a failure.
//
// There is no checksum. The link relies on sequence numbers: any byte out
// of order makes the receiver send a sync request (0xff) carrying its own
// sequence, answered by a sync ack (0xfe). Commands that were in flight
// when the link resyncs fail with ErrNoReply.
package comm

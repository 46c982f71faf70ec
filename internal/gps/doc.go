// Package gps decodes a live NMEA-0183 byte stream and keeps a running fix state.
//
// Bytes are fed one at a time into an Accumulator, completed '$' lines are
// routed by talker+type to the GGA, RMC and GSA handlers, and the handlers
// mutate a FixState that any number of readers may query concurrently.
// Every Feed returns an Outcome so callers can observe dropped or partial
// sentences without an error channel.
package gps

// Package lwrf is the physical and link layer codec for LightwaveRF style
// 434MHz on/off keyed radio messages.
//
// A message is ten 4-bit symbols. Each symbol travels as an 8-bit line code,
// and each bit of a line code is a short mark followed by a space whose length
// carries the bit value. The Transmitter turns a message into pin levels, one
// timer tick at a time. The Receiver turns pin edges back into messages, then
// passes them through a repeat filter and a pairing table before handing them
// to the application.
//
// Hardware is reached only through small capability interfaces (Line,
// TickSource, EdgeSource, Store) so that the state machines can be driven
// directly from tests.
package lwrf

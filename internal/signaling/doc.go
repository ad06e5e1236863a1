// Package signaling contains the WebSocket signaling surface that pairs two
// participants in a room and relays their WebRTC session negotiation.
//
// The coordinator never inspects offers, answers or ICE candidates; it only
// validates addressing and room membership.
package signaling

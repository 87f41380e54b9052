// Package store keeps the latest event of every poll chain and fans updates
// out to subscribers.
//
// This package is internal to pollkit. It backs the HTTP API served by the
// CLI, where external UI code follows running polls instead of listening on a
// shared global event bus.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Record]: Storage representation of a poll chain's latest event
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the poll chains).
package store

// Package poller provides the HTTP transport and poll-chain engine for pollkit.
//
// This package is internal to pollkit. It sends single requests and drives
// poll chains that repeatedly GET one URL until a predicate is satisfied.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with pooling and a response size limit
//   - [Call]: pending result of an asynchronous request
//   - [Chain]: one self-scheduling poll sequence with a timeout budget
//   - [ChainInfo]: configuration for a chain
//
// Users of the pollkit library should not need to interact with this
// package directly. Configuration is done through the main pollkit package.
package poller

// Package cexio is a client for the CEX.io WebSocket API.
//
// A Client owns one connection. It answers server pings, authenticates
// whenever the server announces a new session and correlates responses to
// requests through the "oid" member. Responses for tickers, balances and
// orders are normalized into the types of package core.
//
// CEX.io WebSocket API: https://docs.cex.io/websocket-api
package cexio

/*
Package agents defines the conversational handler contract and the explicit
intent-to-agent registry consumed by the router.

There is no dynamic or import-time registration: the registry is built once
at startup (BuildDefaultRegistry or a hand-assembled NewRegistry) and passed
by reference to whoever needs lookups. Agents report their own availability;
capacity-gated agents refuse new sessions once their concurrency limit is
reached.
*/
package agents

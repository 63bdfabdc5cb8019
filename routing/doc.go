/*
Package routing selects exactly one agent to handle the next conversation
turn.

The decision is a pure function of the session snapshot, the newly
classified intent with its confidence, and the registry. Rules are
evaluated in strict order, first match wins:

 1. Emergency override — medical_emergency always routes to the emergency
    agent, availability ignored.
 2. Sticky continuation — unchanged intent keeps the session's current
    agent while it exists and is available.
 3. Confidence-gated reassignment — confidence above 0.7 routes to an
    available specialist for the new intent.
 4. Fallback — the general_question agent.

The router never mutates session state; callers persist the returned agent
and the turn's intent so the next sticky check sees them. Turns for the
same session must be serialized by the caller.
*/
package routing

/*
Package session persists conversation sessions and dialogue history.

Store is the session-state interface with in-memory and Redis
implementations; HistoryStore logs dialogue turns to a relational
database through GORM. Manager composes the two behind the operations
the pipeline needs: get-or-create, record a turn, commit a routing
decision, end a session.

The stores follow the same contract: sentinel errors for not-found and
closed states, context on every call, Ping for health checks.
*/
package session

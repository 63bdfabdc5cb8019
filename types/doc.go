// Copyright (c) Careline Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type contracts of the careline core.

types is the lowest-level public package and depends on no other careline
package. Cross-package types live here to avoid import cycles:

  - Priority       — five-tier urgency enumeration used by the dispatch queue
  - Session / Turn — conversational state consumed by routing and persisted
    by the session stores
  - Error / ErrorCode — structured error type with retryable marker

Priority is ordered with the numerically lowest value being the most urgent:
CRITICAL(0) < HIGH(1) < MEDIUM(2) < LOW(3) < BACKGROUND(4).
*/
package types

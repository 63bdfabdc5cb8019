/*
Package intent classifies user utterances into (intent, confidence) pairs.

Two classifiers are provided: KeywordClassifier, a deterministic phrase
matcher that needs no network and anchors the safety-critical emergency
phrases, and RemoteClassifier, a zero-shot HTTP classifier that rotates
API keys through a circuit breaker and falls back to the keyword matcher
whenever the upstream is slow, unhealthy, or insufficiently confident.
*/
package intent

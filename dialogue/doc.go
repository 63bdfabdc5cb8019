// Package dialogue holds the conversation state machines: CallMachine
// tracks the audio loop of one live voice call, WorkflowMachine tracks the
// clinical consultation flow. Both reject transitions their tables do not
// allow, so a booking can never start mid-emergency and audio states can
// never skip steps.
package dialogue

// Package session ties the merge engine to a snapshot store.
//
// A Session is what a collaborator UI holds while a human sorts: it
// resumes the saved sort for the current item set (or starts one), and
// persists the engine after every accepted decision or undo, so an
// interruption loses at most the decision in flight.
//
// A snapshot that fails to decode or validate is never fatal. The session
// logs a warning, discards it, and starts the sort from scratch.
package session

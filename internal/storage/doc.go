// Package storage persists received schedules on a medium that offers no
// transactions and may not support atomic rename.
//
// A frame is streamed into a temporary file next to the canonical schedule
// file. Commit then replaces the canonical file through a pipeline of
// increasingly conservative stages:
//
//  1. rename the temporary file over the canonical one
//  2. remove the canonical file (retrying with backoff) and rename again
//  3. copy the temporary file block by block and verify the result
//
// The copy stage only runs once the canonical file is gone, so a failure can
// never leave a half-overwritten canonical file behind. A temporary file left
// over by such a failure is promoted by Recover on the next start.
//
// Writer and the schedule compiler share a Guard so that a commit and a
// reload can never interleave.
package storage

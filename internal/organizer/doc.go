// Package organizer implements the final pipeline stage: it resolves each
// identified file's library destination, arbitrates collisions with files
// already there, and performs the move.
package organizer

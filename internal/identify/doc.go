// Package identify implements the recognition stage: it extracts a
// fingerprint clip from each validated file, submits it to the recognition
// service under a shared rate gate, and records the resulting metadata.
package identify
